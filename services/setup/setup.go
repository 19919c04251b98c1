// Package setup holds the school profile and seeds a fresh store with the
// default classes, subjects, and material categories.
package setup

import (
	"context"
	"errors"
	"strings"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
	"github.com/dekarrin/sms/services/academics"
	"github.com/dekarrin/sms/services/tlm"
)

// EntityType is the collection settings are stored in.
const EntityType = "settings"

// ProfileID is the id of the single school profile record.
const ProfileID = "school"

// Profile describes the school.
type Profile struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name" validate:"notblank"`
	Motto           string `json:"motto,omitempty"`
	Address         string `json:"address,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	CurrentTerm     string `json:"currentTerm,omitempty"`
	AcademicYear    string `json:"academicYear,omitempty"`
	CurrencySymbol  string `json:"currencySymbol,omitempty"`
	HeadteacherName string `json:"headteacherName,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// DefaultProfile is the profile a new store is seeded with.
var DefaultProfile = Profile{
	ID:             ProfileID,
	Name:           "My School",
	CurrentTerm:    "Term 1",
	CurrencySymbol: "GH₵",
}

var defaultClasses = []academics.Class{
	{Name: "Creche"}, {Name: "Nursery 1"}, {Name: "Nursery 2"},
	{Name: "KG 1", Level: "Kindergarten"}, {Name: "KG 2", Level: "Kindergarten"},
	{Name: "Basic 1", Level: "Primary"}, {Name: "Basic 2", Level: "Primary"}, {Name: "Basic 3", Level: "Primary"},
	{Name: "Basic 4", Level: "Primary"}, {Name: "Basic 5", Level: "Primary"}, {Name: "Basic 6", Level: "Primary"},
	{Name: "JHS 1", Level: "JHS"}, {Name: "JHS 2", Level: "JHS"}, {Name: "JHS 3", Level: "JHS"},
}

var defaultSubjects = []academics.Subject{
	{Name: "English Language", Code: "ENG"},
	{Name: "Mathematics", Code: "MATH"},
	{Name: "Integrated Science", Code: "SCI"},
	{Name: "Social Studies", Code: "SOC"},
	{Name: "Religious and Moral Education", Code: "RME"},
	{Name: "Ghanaian Language", Code: "GHL"},
	{Name: "Creative Arts", Code: "CA"},
	{Name: "Computing", Code: "ICT"},
	{Name: "French", Code: "FRE"},
}

var defaultCategories = []tlm.Category{
	{Name: "Textbooks"},
	{Name: "Charts and Posters"},
	{Name: "Models"},
	{Name: "Science Equipment"},
	{Name: "Sports Equipment"},
	{Name: "Digital"},
}

// SeedResult says which collections SeedDefaults wrote to.
type SeedResult map[string]bool

// Seeded returns the entity types that were written, in no particular order.
func (r SeedResult) Seeded() []string {
	var types []string
	for k, v := range r {
		if v {
			types = append(types, k)
		}
	}
	return types
}

type Service struct {
	store    *entity.Store
	settings entity.Collection[Profile]
	log      sms.Logger
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		store:    store,
		settings: entity.NewCollection[Profile](store, EntityType),
		log:      logging.WithPrefix(log, "[setup]"),
	}
}

// GetProfile returns the school profile, or DefaultProfile if none has been
// saved.
func (s *Service) GetProfile(ctx context.Context) (Profile, error) {
	p, err := s.settings.Get(ctx, ProfileID)
	if errors.Is(err, sms.ErrNotFound) {
		return DefaultProfile, nil
	}
	return p, err
}

// SaveProfile stores p as the school profile, replacing any earlier one.
func (s *Service) SaveProfile(ctx context.Context, p Profile) (Profile, error) {
	if err := validate.Struct(p); err != nil {
		return Profile{}, err
	}
	p.ID = ProfileID
	p.Name = strings.TrimSpace(p.Name)
	p.CreatedAt, p.UpdatedAt = "", ""

	saved, err := s.settings.Update(ctx, ProfileID, p)
	if errors.Is(err, sms.ErrNotFound) {
		saved, err = s.settings.Create(ctx, p)
	}
	return saved, err
}

// SeedDefaults writes the default profile, classes, subjects, and TLM
// categories into every one of those collections that is still empty. It is
// safe to call on every start-up.
func (s *Service) SeedDefaults(ctx context.Context) (SeedResult, error) {
	res := SeedResult{}

	var err error
	if res[EntityType], err = s.settings.Seed(ctx, []Profile{DefaultProfile}); err != nil {
		return res, err
	}
	classes := entity.NewCollection[academics.Class](s.store, academics.ClassesEntityType)
	if res[academics.ClassesEntityType], err = classes.Seed(ctx, defaultClasses); err != nil {
		return res, err
	}
	subjects := entity.NewCollection[academics.Subject](s.store, academics.SubjectsEntityType)
	if res[academics.SubjectsEntityType], err = subjects.Seed(ctx, defaultSubjects); err != nil {
		return res, err
	}
	categories := entity.NewCollection[tlm.Category](s.store, tlm.CategoriesEntityType)
	if res[tlm.CategoriesEntityType], err = categories.Seed(ctx, defaultCategories); err != nil {
		return res, err
	}

	s.log.Debugf("seeded %v", res.Seeded())
	return res, nil
}
