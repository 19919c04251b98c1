// Package elearning publishes lesson material to classes.
package elearning

import (
	"context"
	"strings"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
)

// EntityType is the collection lessons are stored in.
const EntityType = "lessons"

type Lesson struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Class     string `json:"class"`
	SubjectID string `json:"subjectId,omitempty"`
	Content   string `json:"content,omitempty"`
	Link      string `json:"link,omitempty"`
	Published bool   `json:"published"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type NewLesson struct {
	Title     string `json:"title" validate:"notblank"`
	Class     string `json:"class" validate:"notblank"`
	SubjectID string `json:"subjectId"`
	Content   string `json:"content" validate:"required_without=Link"`
	Link      string `json:"link" validate:"omitempty,url"`
}

type Service struct {
	col entity.Collection[Lesson]
	log sms.Logger
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col: entity.NewCollection[Lesson](store, EntityType),
		log: logging.WithPrefix(log, "[elearning]"),
	}
}

// Create saves an unpublished lesson. A lesson needs content, a link, or both.
func (s *Service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	if err := validate.Struct(nl); err != nil {
		return Lesson{}, err
	}

	return s.col.Create(ctx, Lesson{
		Title:     strings.TrimSpace(nl.Title),
		Class:     strings.TrimSpace(nl.Class),
		SubjectID: nl.SubjectID,
		Content:   nl.Content,
		Link:      strings.TrimSpace(nl.Link),
	})
}

func (s *Service) Publish(ctx context.Context, id string) (Lesson, error) {
	l, err := s.col.Update(ctx, id, entity.Record{"published": true})
	if err != nil {
		return Lesson{}, err
	}
	s.log.Debugf("published lesson %q to %s", l.Title, l.Class)
	return l, nil
}

// ForClass returns the published lessons for a class, oldest first.
func (s *Service) ForClass(ctx context.Context, class string) ([]Lesson, error) {
	found, err := s.col.Find(ctx, entity.Where{
		"class":     entity.EqualsFold(strings.TrimSpace(class)),
		"published": entity.Equals(true),
	})
	if err != nil {
		return nil, err
	}
	return jelsort.By(found, jelsort.Asc(func(l Lesson) string { return l.CreatedAt })), nil
}

// All returns every lesson including unpublished ones.
func (s *Service) All(ctx context.Context) ([]Lesson, error) {
	return s.col.All(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}
