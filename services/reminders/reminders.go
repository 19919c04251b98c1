// Package reminders keeps the administrator's dated to-do reminders.
package reminders

import (
	"context"
	"strings"
	"time"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
)

// EntityType is the collection reminders are stored in.
const EntityType = "reminders"

type Reminder struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Note        string `json:"note,omitempty"`
	DueAt       string `json:"dueAt"`
	Done        bool   `json:"done"`
	CompletedAt string `json:"completedAt,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// NewReminder is the input to Create. DueAt is a date or an RFC 3339
// timestamp; a bare date is due at the start of that day, UTC.
type NewReminder struct {
	Title string `json:"title" validate:"notblank"`
	Note  string `json:"note"`
	DueAt string `json:"dueAt" validate:"required,isodate"`
}

type Service struct {
	col entity.Collection[Reminder]
	log sms.Logger
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col: entity.NewCollection[Reminder](store, EntityType),
		log: logging.WithPrefix(log, "[reminders]"),
	}
}

func (s *Service) Create(ctx context.Context, nr NewReminder) (Reminder, error) {
	if err := validate.Struct(nr); err != nil {
		return Reminder{}, err
	}

	due, err := entity.ParseTime(nr.DueAt)
	if err != nil {
		return Reminder{}, sms.Validationf("dueAt", "%s", err.Error())
	}

	return s.col.Create(ctx, Reminder{
		Title: strings.TrimSpace(nr.Title),
		Note:  nr.Note,
		DueAt: entity.FormatTime(due),
	})
}

// Due returns the reminders not yet done that are due at or before now,
// soonest first.
func (s *Service) Due(ctx context.Context, now time.Time) ([]Reminder, error) {
	found, err := s.col.Find(ctx, entity.Where{
		"done":  entity.Equals(false),
		"dueAt": entity.IsBeforeOrEquals(now),
	})
	if err != nil {
		return nil, err
	}
	return sortByDue(found), nil
}

// Pending returns every reminder not yet done, soonest first.
func (s *Service) Pending(ctx context.Context) ([]Reminder, error) {
	found, err := s.col.Find(ctx, entity.Where{"done": entity.Equals(false)})
	if err != nil {
		return nil, err
	}
	return sortByDue(found), nil
}

// Complete marks a reminder done.
func (s *Service) Complete(ctx context.Context, id string) (Reminder, error) {
	return s.col.Update(ctx, id, entity.Record{
		"done":        true,
		"completedAt": entity.FormatTime(s.col.Store().Now()),
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func sortByDue(rs []Reminder) []Reminder {
	return jelsort.By(rs, jelsort.Asc(func(r Reminder) int64 {
		t, err := entity.ParseTime(r.DueAt)
		if err != nil {
			return 0
		}
		return t.UnixMilli()
	}))
}
