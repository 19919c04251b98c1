package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dekarrin/sms"
)

// Names of the fields that every record created through a Store carries.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// TimeFormat is the ISO-8601 layout used for createdAt and updatedAt. It always
// has millisecond precision and is always in UTC.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTime formats t with TimeFormat in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses an RFC 3339 timestamp or a plain "YYYY-MM-DD" date.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	if d, dErr := time.Parse(time.DateOnly, s); dErr == nil {
		return d, nil
	}
	return time.Time{}, err
}

// Record is a single stored object. It is an open map of fields; values are
// whatever encoding/json produces when decoding, so numbers read back from a
// Store are float64, nested objects are map[string]any, and arrays are []any.
type Record map[string]any

// ID returns the record's id as a string. Non-string ids are converted to their
// string form. A missing id gives "".
func (r Record) ID() string {
	return idString(r[FieldID])
}

// CreatedAt returns the parsed createdAt field, if present and valid.
func (r Record) CreatedAt() (time.Time, bool) {
	return r.Time(FieldCreatedAt)
}

// UpdatedAt returns the parsed updatedAt field, if present and valid.
func (r Record) UpdatedAt() (time.Time, bool) {
	return r.Time(FieldUpdatedAt)
}

// String returns the value of field if it is a string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// Float returns the value of field as a float64 if it is any numeric type.
func (r Record) Float(field string) (float64, bool) {
	return toFloat(r[field])
}

// Time returns the value of field as a time.Time if it is one or is a string
// that ParseTime accepts.
func (r Record) Time(field string) (time.Time, bool) {
	return toTime(r[field])
}

// Clone returns a deep copy of r. Nested maps and slices are copied; other
// values are copied by assignment.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return copyValue(map[string]any(r)).(map[string]any)
}

// Merge returns a copy of r with every field of patch set over it. It is a
// shallow merge: a nested object in patch replaces the one in r entirely.
func (r Record) Merge(patch Record) Record {
	merged := r.Clone()
	if merged == nil {
		merged = Record{}
	}
	for k, v := range patch {
		merged[k] = copyValue(v)
	}
	return merged
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(typed))
		for k, sub := range typed {
			m[k] = copyValue(sub)
		}
		return m
	case Record:
		return Record(copyValue(map[string]any(typed)).(map[string]any))
	case []any:
		sl := make([]any, len(typed))
		for i := range typed {
			sl[i] = copyValue(typed[i])
		}
		return sl
	default:
		return v
	}
}

// normalize returns r as it will be read back after a round trip through
// storage.
func normalize(r Record) (Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, sms.NewError(fmt.Sprintf("record is not JSON-encodable: %s", err.Error()), sms.ErrBadArgument)
	}

	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, sms.NewError(err.Error(), sms.ErrDecodingFailure)
	}
	return out, nil
}

// ToRecord converts v to a Record by way of its JSON encoding. v is typically a
// struct with json tags or a map.
func ToRecord(v any) (Record, error) {
	if r, ok := v.(Record); ok {
		return r.Clone(), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, sms.NewError(fmt.Sprintf("convert %T to record: %s", v, err.Error()), sms.ErrBadArgument)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, sms.NewError(fmt.Sprintf("convert %T to record: %s", v, err.Error()), sms.ErrBadArgument)
	}
	return r, nil
}

// FromRecord converts r into a T by way of its JSON encoding.
func FromRecord[T any](r Record) (T, error) {
	var out T

	data, err := json.Marshal(r)
	if err != nil {
		return out, sms.NewError(err.Error(), sms.ErrDecodingFailure)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, sms.NewError(fmt.Sprintf("decode record %q as %T: %s", r.ID(), out, err.Error()), sms.ErrDecodingFailure)
	}
	return out, nil
}

func idString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		if typed == math.Trunc(typed) && math.Abs(typed) < 1<<53 {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := ParseTime(t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}
