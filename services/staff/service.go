// Package staff manages teaching and non-teaching staff records.
package staff

import (
	"context"
	"strings"
	"sync"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
)

type Service struct {
	col entity.Collection[Member]
	log sms.Logger

	serialMtx sync.Mutex
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col: entity.NewCollection[Member](store, EntityType),
		log: logging.WithPrefix(log, "[staff]"),
	}
}

// Create hires a new active staff member with the next free staff ID.
func (s *Service) Create(ctx context.Context, nm NewMember) (Member, error) {
	if err := validate.Struct(nm); err != nil {
		return Member{}, err
	}

	m := Member{
		FirstName: strings.TrimSpace(nm.FirstName),
		Surname:   strings.TrimSpace(nm.Surname),
		Role:      nm.Role,
		Position:  strings.TrimSpace(nm.Position),
		Email:     strings.ToLower(strings.TrimSpace(nm.Email)),
		Phone:     strings.TrimSpace(nm.Phone),
		Salary:    nm.Salary,
		Status:    StatusActive,
		HireDate:  nm.HireDate,
	}

	s.serialMtx.Lock()
	defer s.serialMtx.Unlock()

	if m.Email != "" {
		_, taken, err := s.col.FindOne(ctx, entity.Where{"email": entity.EqualsFold(m.Email)})
		if err != nil {
			return Member{}, err
		}
		if taken {
			return Member{}, sms.Validationf("email", "a staff member with this email already exists")
		}
	}

	existing, err := s.col.Records(ctx)
	if err != nil {
		return Member{}, err
	}
	m.StaffID = entity.NextSerial(existing, "staffId", serialPrefix, serialWidth)

	created, err := s.col.Create(ctx, m)
	if err != nil {
		return Member{}, err
	}

	s.log.Debugf("hired %s as %s", created.FullName(), created.StaffID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	return s.col.Get(ctx, id)
}

// List returns the staff matching opts sorted by surname and then first name.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Member, error) {
	where := entity.Where{}
	if opts.Role != "" {
		where["role"] = entity.Equals(opts.Role)
	}
	if opts.Status != "" {
		where["status"] = entity.Equals(opts.Status)
	}

	var f entity.Filter = where
	if search := strings.TrimSpace(opts.Search); search != "" {
		contains := entity.Contains(search)
		f = where.And(entity.Where{"firstName": contains}.Or(
			entity.Where{"surname": contains},
			entity.Where{"staffId": contains},
			entity.Where{"position": contains},
			entity.Where{"email": contains},
		))
	}

	found, err := s.col.Find(ctx, f)
	if err != nil {
		return nil, err
	}

	return jelsort.By(found, jelsort.Then(
		jelsort.Fold(func(m Member) string { return m.Surname }),
		jelsort.Fold(func(m Member) string { return m.FirstName }),
	)), nil
}

// Active returns every active staff member in stored order.
func (s *Service) Active(ctx context.Context) ([]Member, error) {
	return s.col.Find(ctx, entity.Where{"status": entity.Equals(StatusActive)})
}

// Teachers returns the active teaching staff.
func (s *Service) Teachers(ctx context.Context) ([]Member, error) {
	return s.List(ctx, ListOptions{Role: RoleTeaching, Status: StatusActive})
}

func (s *Service) Update(ctx context.Context, id string, um UpdateMember) (Member, error) {
	if err := validate.Struct(um); err != nil {
		return Member{}, err
	}
	if err := validate.NotBlank("firstName", um.FirstName); err != nil {
		return Member{}, err
	}
	if err := validate.NotBlank("surname", um.Surname); err != nil {
		return Member{}, err
	}

	return s.col.Update(ctx, id, um)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}
