// Package academics manages classes, subjects, and students' term results.
package academics

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
	"github.com/dekarrin/sms/services/staff"
	"github.com/dekarrin/sms/services/students"
)

type Service struct {
	classes  entity.Collection[Class]
	subjects entity.Collection[Subject]
	results  entity.Collection[Result]
	students entity.Collection[students.Student]
	staff    entity.Collection[staff.Member]
	log      sms.Logger

	mtx sync.Mutex
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		classes:  entity.NewCollection[Class](store, ClassesEntityType),
		subjects: entity.NewCollection[Subject](store, SubjectsEntityType),
		results:  entity.NewCollection[Result](store, ResultsEntityType),
		students: entity.NewCollection[students.Student](store, students.EntityType),
		staff:    entity.NewCollection[staff.Member](store, staff.EntityType),
		log:      logging.WithPrefix(log, "[academics]"),
	}
}

// CreateClass adds a class. Class names are unique ignoring case.
func (s *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if err := validate.Struct(nc); err != nil {
		return Class{}, err
	}
	c := Class{
		Name:      strings.TrimSpace(nc.Name),
		Level:     strings.TrimSpace(nc.Level),
		TeacherID: strings.TrimSpace(nc.TeacherID),
	}
	if c.TeacherID != "" {
		if err := s.exists(ctx, s.staff.Count, "teacherId", "staff member", c.TeacherID); err != nil {
			return Class{}, err
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.unique(ctx, s.classes.Count, ClassesEntityType, "name", c.Name); err != nil {
		return Class{}, err
	}
	return s.classes.Create(ctx, c)
}

// Classes returns every class sorted by name.
func (s *Service) Classes(ctx context.Context) ([]Class, error) {
	all, err := s.classes.All(ctx)
	if err != nil {
		return nil, err
	}
	return jelsort.By(all, jelsort.Fold(func(c Class) string { return c.Name })), nil
}

// AssignTeacher makes an existing staff member the class teacher of a class.
func (s *Service) AssignTeacher(ctx context.Context, classID, staffID string) (Class, error) {
	if err := s.exists(ctx, s.staff.Count, "teacherId", "staff member", staffID); err != nil {
		return Class{}, err
	}
	return s.classes.Update(ctx, classID, entity.Record{"teacherId": staffID})
}

func (s *Service) DeleteClass(ctx context.Context, id string) error {
	return s.classes.Delete(ctx, id)
}

// CreateSubject adds a subject. Names and codes are each unique ignoring
// case; codes are stored in upper case.
func (s *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	sub := Subject{
		Name: strings.TrimSpace(ns.Name),
		Code: strings.ToUpper(strings.TrimSpace(ns.Code)),
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.unique(ctx, s.subjects.Count, SubjectsEntityType, "name", sub.Name); err != nil {
		return Subject{}, err
	}
	if err := s.unique(ctx, s.subjects.Count, SubjectsEntityType, "code", sub.Code); err != nil {
		return Subject{}, err
	}
	return s.subjects.Create(ctx, sub)
}

// Subjects returns every subject sorted by name.
func (s *Service) Subjects(ctx context.Context) ([]Subject, error) {
	all, err := s.subjects.All(ctx)
	if err != nil {
		return nil, err
	}
	return jelsort.By(all, jelsort.Fold(func(sub Subject) string { return sub.Name })), nil
}

func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	return s.subjects.Delete(ctx, id)
}

// RecordResult stores a student's scores for a subject and term, replacing
// any result already recorded for that student, subject, term, and year. The
// total and grade are computed.
func (s *Service) RecordResult(ctx context.Context, in ResultInput) (Result, error) {
	if err := validate.Struct(in); err != nil {
		return Result{}, err
	}
	if err := s.exists(ctx, s.students.Count, "studentId", "student", in.StudentID); err != nil {
		return Result{}, err
	}
	if err := s.exists(ctx, s.subjects.Count, "subjectId", "subject", in.SubjectID); err != nil {
		return Result{}, err
	}

	total := round1(in.ClassScore + in.ExamScore)
	grade, remark := Grade(total)
	r := Result{
		StudentID:    in.StudentID,
		SubjectID:    in.SubjectID,
		Term:         strings.TrimSpace(in.Term),
		AcademicYear: strings.TrimSpace(in.AcademicYear),
		ClassScore:   in.ClassScore,
		ExamScore:    in.ExamScore,
		Total:        total,
		Grade:        grade,
		Remark:       remark,
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	prev, found, err := s.results.FindOne(ctx, entity.Where{
		"studentId":    entity.Equals(r.StudentID),
		"subjectId":    entity.Equals(r.SubjectID),
		"term":         entity.EqualsFold(r.Term),
		"academicYear": entity.Equals(r.AcademicYear),
	})
	if err != nil {
		return Result{}, err
	}
	if found {
		return s.results.Update(ctx, prev.ID, r)
	}
	return s.results.Create(ctx, r)
}

// Results returns every result a student has, newest year first.
func (s *Service) Results(ctx context.Context, studentID string) ([]Result, error) {
	found, err := s.results.Find(ctx, entity.Where{"studentId": entity.Equals(studentID)})
	if err != nil {
		return nil, err
	}
	return jelsort.By(found, jelsort.Then(
		jelsort.Desc(func(r Result) string { return r.AcademicYear }),
		jelsort.Asc(func(r Result) string { return r.Term }),
	)), nil
}

// ReportCard gathers a student's results for one term, with subject names and
// the average total across subjects.
func (s *Service) ReportCard(ctx context.Context, studentID, term, academicYear string) (ReportCard, error) {
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return ReportCard{}, err
	}

	results, err := s.results.Find(ctx, entity.Where{
		"studentId":    entity.Equals(studentID),
		"term":         entity.EqualsFold(strings.TrimSpace(term)),
		"academicYear": entity.Equals(strings.TrimSpace(academicYear)),
	})
	if err != nil {
		return ReportCard{}, err
	}

	subjects, err := s.subjects.All(ctx)
	if err != nil {
		return ReportCard{}, err
	}
	names := make(map[string]string, len(subjects))
	for _, sub := range subjects {
		names[sub.ID] = sub.Name
	}

	card := ReportCard{
		StudentID:    st.ID,
		StudentName:  st.FullName(),
		Class:        st.Class,
		Term:         term,
		AcademicYear: academicYear,
		Lines:        make([]ReportLine, len(results)),
	}
	for i, r := range results {
		card.Lines[i] = ReportLine{
			SubjectID:   r.SubjectID,
			SubjectName: names[r.SubjectID],
			ClassScore:  r.ClassScore,
			ExamScore:   r.ExamScore,
			Total:       r.Total,
			Grade:       r.Grade,
			Remark:      r.Remark,
		}
		card.TotalScore += r.Total
	}
	card.Lines = jelsort.By(card.Lines, jelsort.Fold(func(l ReportLine) string { return l.SubjectName }))

	card.TotalScore = round1(card.TotalScore)
	if len(results) > 0 {
		card.Average = round1(card.TotalScore / float64(len(results)))
	}
	return card, nil
}

func (s *Service) DeleteResult(ctx context.Context, id string) error {
	return s.results.Delete(ctx, id)
}

type countFunc func(context.Context, entity.Filter) (int, error)

func (s *Service) unique(ctx context.Context, count countFunc, entityType, field, value string) error {
	n, err := count(ctx, entity.Where{field: entity.EqualsFold(value)})
	if err != nil {
		return err
	}
	if n > 0 {
		return &sms.ConflictError{EntityType: entityType, ID: value}
	}
	return nil
}

func (s *Service) exists(ctx context.Context, count countFunc, field, what, id string) error {
	n, err := count(ctx, entity.Where{"id": entity.Equals(id)})
	if err != nil {
		return err
	}
	if n == 0 {
		return sms.Validationf(field, "no %s with ID %q exists", what, id)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
