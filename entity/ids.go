package entity

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dekarrin/sms"
	"github.com/google/uuid"
)

// maxIDAttempts is how many times a Store will generate a new ID for a record
// before giving up because every one collided with an existing record.
const maxIDAttempts = 8

// IDGenerator creates new record IDs. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	NewID() (string, error)
}

// TimestampIDs generates IDs of the form "<epoch-millis>_<base36>", where the
// suffix is nine base-36 digits of randomness taken from a version 4 UUID.
type TimestampIDs struct {
	// Now gives the current time. If nil, time.Now is used.
	Now func() time.Time
}

func (g TimestampIDs) NewID() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("could not generate ID: %w", err)
	}

	// 9 base-36 digits need under 47 bits
	n := binary.BigEndian.Uint64(u[8:]) % 101559956668416 // 36^9
	suffix := strconv.FormatUint(n, 36)
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}

	return strconv.FormatInt(now().UnixMilli(), 10) + "_" + suffix, nil
}

// UUIDs generates random version 4 UUIDs.
type UUIDs struct{}

func (UUIDs) NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("could not generate ID: %w", err)
	}
	return u.String(), nil
}

// GeneratorFor returns the IDGenerator for an IDScheme.
func GeneratorFor(scheme sms.IDScheme) (IDGenerator, error) {
	switch scheme {
	case sms.IDTimestamp, "":
		return TimestampIDs{}, nil
	case sms.IDUUID:
		return UUIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown ID scheme: %q", scheme)
	}
}

// NextSerial returns the next human-readable serial number for a set of
// records, such as "STU0001". It finds the highest number among the values of
// field that start with prefix and returns one more than it, zero-padded to
// width digits. Values that do not parse are ignored.
func NextSerial(records []Record, field, prefix string, width int) string {
	var highest uint64
	for _, r := range records {
		s, ok := r.String(field)
		if !ok || !strings.HasPrefix(s, prefix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(s, prefix), 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}

	return fmt.Sprintf("%s%0*d", prefix, width, highest+1)
}
