// Package tlm keeps the inventory of teaching and learning materials.
package tlm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
)

type Service struct {
	categories entity.Collection[Category]
	materials  entity.Collection[Material]
	log        sms.Logger

	catMtx sync.Mutex
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		categories: entity.NewCollection[Category](store, CategoriesEntityType),
		materials:  entity.NewCollection[Material](store, MaterialsEntityType),
		log:        logging.WithPrefix(log, "[tlm]"),
	}
}

// CreateCategory adds a category. Names are unique ignoring case.
func (s *Service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	if err := validate.Struct(nc); err != nil {
		return Category{}, err
	}
	name := strings.TrimSpace(nc.Name)

	s.catMtx.Lock()
	defer s.catMtx.Unlock()

	_, taken, err := s.categories.FindOne(ctx, entity.Where{"name": entity.EqualsFold(name)})
	if err != nil {
		return Category{}, err
	}
	if taken {
		return Category{}, &sms.ConflictError{EntityType: CategoriesEntityType, ID: name}
	}

	return s.categories.Create(ctx, Category{Name: name, Description: strings.TrimSpace(nc.Description)})
}

// Categories returns every category sorted by name.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	all, err := s.categories.All(ctx)
	if err != nil {
		return nil, err
	}
	return jelsort.By(all, jelsort.Fold(func(c Category) string { return c.Name })), nil
}

// DeleteCategory removes a category that no material is filed under.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	n, err := s.materials.Count(ctx, entity.Where{"categoryId": entity.Equals(id)})
	if err != nil {
		return err
	}
	if n > 0 {
		return sms.Validationf("categoryId", "%d material(s) still use this category", n)
	}
	return s.categories.Delete(ctx, id)
}

// Create adds a material under an existing category.
func (s *Service) Create(ctx context.Context, nm NewMaterial) (Material, error) {
	if err := validate.Struct(nm); err != nil {
		return Material{}, err
	}

	cat, err := s.category(ctx, nm.CategoryID)
	if err != nil {
		return Material{}, err
	}

	m := Material{
		Title:      strings.TrimSpace(nm.Title),
		CategoryID: cat.ID,
		Subject:    strings.TrimSpace(nm.Subject),
		Class:      strings.TrimSpace(nm.Class),
		Quantity:   nm.Quantity,
		Condition:  nm.Condition,
	}
	if m.Condition == "" {
		m.Condition = ConditionGood
	}

	created, err := s.materials.Create(ctx, m)
	if err != nil {
		return Material{}, err
	}
	created.CategoryName = cat.Name
	return created, nil
}

// Get returns a material with its category name filled in.
func (s *Service) Get(ctx context.Context, id string) (Material, error) {
	m, err := s.materials.Get(ctx, id)
	if err != nil {
		return Material{}, err
	}
	names, err := s.categoryNames(ctx)
	if err != nil {
		return Material{}, err
	}
	m.CategoryName = names[m.CategoryID]
	return m, nil
}

// List returns the materials matching opts sorted by title, each with its
// category name filled in. Materials whose category is gone have an empty
// CategoryName.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Material, error) {
	where := entity.Where{}
	if opts.CategoryID != "" {
		where["categoryId"] = entity.Equals(opts.CategoryID)
	}
	if opts.Class != "" {
		where["class"] = entity.EqualsFold(opts.Class)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		where["title"] = entity.Contains(search)
	}

	found, err := s.materials.Find(ctx, where)
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	for i := range found {
		found[i].CategoryName = names[found[i].CategoryID]
	}
	return jelsort.By(found, jelsort.Fold(func(m Material) string { return m.Title })), nil
}

func (s *Service) Update(ctx context.Context, id string, um UpdateMaterial) (Material, error) {
	if err := validate.Struct(um); err != nil {
		return Material{}, err
	}
	if err := validate.NotBlank("title", um.Title); err != nil {
		return Material{}, err
	}
	if um.CategoryID != nil {
		if _, err := s.category(ctx, *um.CategoryID); err != nil {
			return Material{}, err
		}
	}

	if _, err := s.materials.Update(ctx, id, um); err != nil {
		return Material{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.materials.Delete(ctx, id)
}

// category gets a category by id, turning a missing one into a validation
// error on categoryId.
func (s *Service) category(ctx context.Context, id string) (Category, error) {
	cat, err := s.categories.Get(ctx, id)
	if errors.Is(err, sms.ErrNotFound) {
		return Category{}, sms.Validationf("categoryId", "no category with ID %q exists", id)
	}
	return cat, err
}

func (s *Service) categoryNames(ctx context.Context) (map[string]string, error) {
	cats, err := s.categories.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}
