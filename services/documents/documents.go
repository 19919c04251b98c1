// Package documents files records of documents kept for students and staff.
package documents

import (
	"context"
	"strings"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
	"github.com/dekarrin/sms/services/staff"
	"github.com/dekarrin/sms/services/students"
)

// EntityType is the collection documents are stored in.
const EntityType = "documents"

// Owner types
const (
	OwnerStudent = "student"
	OwnerStaff   = "staff"
)

type Document struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Kind      string `json:"kind,omitempty"`
	OwnerType string `json:"ownerType"`
	OwnerID   string `json:"ownerId"`
	FileName  string `json:"fileName,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type NewDocument struct {
	Title     string `json:"title" validate:"notblank"`
	Kind      string `json:"kind"`
	OwnerType string `json:"ownerType" validate:"oneof=student staff"`
	OwnerID   string `json:"ownerId" validate:"notblank"`
	FileName  string `json:"fileName"`
	Notes     string `json:"notes"`
}

type Service struct {
	col   entity.Collection[Document]
	store *entity.Store
	log   sms.Logger
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col:   entity.NewCollection[Document](store, EntityType),
		store: store,
		log:   logging.WithPrefix(log, "[documents]"),
	}
}

// Create files a document against an existing student or staff member.
func (s *Service) Create(ctx context.Context, nd NewDocument) (Document, error) {
	if err := validate.Struct(nd); err != nil {
		return Document{}, err
	}

	ownerType := students.EntityType
	if nd.OwnerType == OwnerStaff {
		ownerType = staff.EntityType
	}
	n, err := s.store.Count(ctx, ownerType, entity.Where{"id": entity.Equals(nd.OwnerID)})
	if err != nil {
		return Document{}, err
	}
	if n == 0 {
		return Document{}, sms.Validationf("ownerId", "no %s with ID %q exists", nd.OwnerType, nd.OwnerID)
	}

	return s.col.Create(ctx, Document{
		Title:     strings.TrimSpace(nd.Title),
		Kind:      strings.TrimSpace(nd.Kind),
		OwnerType: nd.OwnerType,
		OwnerID:   nd.OwnerID,
		FileName:  strings.TrimSpace(nd.FileName),
		Notes:     nd.Notes,
	})
}

// ForOwner returns the documents filed for one owner, oldest first.
func (s *Service) ForOwner(ctx context.Context, ownerType, ownerID string) ([]Document, error) {
	found, err := s.col.Find(ctx, entity.Where{
		"ownerType": entity.Equals(ownerType),
		"ownerId":   entity.Equals(ownerID),
	})
	if err != nil {
		return nil, err
	}
	return jelsort.By(found, jelsort.Asc(func(d Document) string { return d.CreatedAt })), nil
}

func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.col.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}
