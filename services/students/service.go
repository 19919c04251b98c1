// Package students manages student records.
package students

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
	col entity.Collection[Student]
	log sms.Logger

	// serialMtx is held from reading the highest student ID until the new
	// student is stored.
	serialMtx sync.Mutex
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col: entity.NewCollection[Student](store, EntityType),
		log: logging.WithPrefix(log, "[students]"),
	}
}

// Create admits a new student. The student is given the next free student ID
// and is active unless another status is given.
func (s *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := validate.Struct(ns); err != nil {
		return Student{}, err
	}

	st := Student{
		FirstName:     strings.TrimSpace(ns.FirstName),
		Surname:       strings.TrimSpace(ns.Surname),
		OtherNames:    strings.TrimSpace(ns.OtherNames),
		Gender:        ns.Gender,
		DateOfBirth:   ns.DateOfBirth,
		Class:         strings.TrimSpace(ns.Class),
		GuardianName:  strings.TrimSpace(ns.GuardianName),
		GuardianPhone: strings.TrimSpace(ns.GuardianPhone),
		Status:        ns.Status,
		AdmissionDate: ns.AdmissionDate,
	}
	if st.Status == "" {
		st.Status = StatusActive
	}
	if st.AdmissionDate == "" {
		st.AdmissionDate = s.col.Store().Now().UTC().Format("2006-01-02")
	}

	s.serialMtx.Lock()
	defer s.serialMtx.Unlock()

	existing, err := s.col.Records(ctx)
	if err != nil {
		return Student{}, err
	}
	st.StudentID = entity.NextSerial(existing, "studentId", serialPrefix, serialWidth)

	created, err := s.col.Create(ctx, st)
	if err != nil {
		return Student{}, err
	}

	s.log.Debugf("admitted %s as %s", created.FullName(), created.StudentID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Student, error) {
	return s.col.Get(ctx, id)
}

// GetByStudentID returns the student with the given human-readable student ID
// such as "STU0001".
func (s *Service) GetByStudentID(ctx context.Context, studentID string) (Student, error) {
	st, found, err := s.col.FindOne(ctx, entity.Where{"studentId": entity.EqualsFold(studentID)})
	if err != nil {
		return Student{}, err
	}
	if !found {
		return Student{}, &sms.NotFoundError{EntityType: EntityType, ID: studentID}
	}
	return st, nil
}

// List returns the students matching opts sorted by surname and then first
// name.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Student, error) {
	where := entity.Where{}
	if opts.Class != "" {
		where["class"] = entity.EqualsFold(opts.Class)
	}
	if opts.Status != "" {
		where["status"] = entity.Equals(opts.Status)
	}

	var f entity.Filter = where
	if search := strings.TrimSpace(opts.Search); search != "" {
		f = where.And(Search(search))
	}

	found, err := s.col.Find(ctx, f)
	if err != nil {
		return nil, err
	}

	return jelsort.By(found, jelsort.Then(
		jelsort.Fold(func(st Student) string { return st.Surname }),
		jelsort.Fold(func(st Student) string { return st.FirstName }),
	)), nil
}

// Search returns a Filter matching students whose names or student ID contain
// term, ignoring case.
func Search(term string) entity.Filter {
	contains := entity.Contains(term)
	return entity.Where{"firstName": contains}.Or(
		entity.Where{"surname": contains},
		entity.Where{"otherNames": contains},
		entity.Where{"studentId": contains},
	)
}

func (s *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	if err := validate.Struct(us); err != nil {
		return Student{}, err
	}
	if err := validate.NotBlank("firstName", us.FirstName); err != nil {
		return Student{}, err
	}
	if err := validate.NotBlank("surname", us.Surname); err != nil {
		return Student{}, err
	}

	return s.col.Update(ctx, id, us)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

// DeleteMany removes the students with the given ids and returns how many
// there were.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int, error) {
	return s.col.DeleteMany(ctx, ids)
}

// Promote moves every listed student into class. It stops at the first
// failure; students before it stay promoted. The number promoted is returned.
func (s *Service) Promote(ctx context.Context, ids []string, class string) (int, error) {
	class = strings.TrimSpace(class)
	if class == "" {
		return 0, sms.Validationf("class", "cannot be blank")
	}

	var promoted int
	for _, id := range ids {
		if _, err := s.col.Update(ctx, id, UpdateStudent{Class: &class}); err != nil {
			return promoted, err
		}
		promoted++
	}

	s.log.Infof("promoted %d student(s) to %s", promoted, class)
	return promoted, nil
}

// CountByClass returns the number of active students in each class. Students
// without a class are counted under "".
func (s *Service) CountByClass(ctx context.Context) (map[string]int, error) {
	active, err := s.col.Find(ctx, entity.Where{"status": entity.Equals(StatusActive)})
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, st := range active {
		counts[st.Class]++
	}
	return counts, nil
}
