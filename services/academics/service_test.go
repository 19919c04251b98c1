package academics

import (
	"context"
	"testing"
	"time"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/kv/inmem"
	"github.com/dekarrin/sms/services/staff"
	"github.com/dekarrin/sms/services/students"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *entity.Store {
	now := time.Date(2024, time.December, 13, 8, 0, 0, 0, time.UTC)
	store := entity.New(inmem.New(), &entity.Options{Now: func() time.Time { return now }})
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestService(t *testing.T) (*Service, students.Student) {
	store := newTestStore(t)

	st, err := students.NewService(store, nil).Create(context.Background(), students.NewStudent{FirstName: "Ama", Surname: "Owusu", Class: "Basic 6"})
	require.NoError(t, err)

	return NewService(store, nil), st
}

func Test_Grade(t *testing.T) {
	testCases := []struct {
		total        float64
		expectGrade  string
		expectRemark string
	}{
		{total: 100, expectGrade: "A1", expectRemark: "Excellent"},
		{total: 80, expectGrade: "A1", expectRemark: "Excellent"},
		{total: 79.9, expectGrade: "B2", expectRemark: "Very Good"},
		{total: 70, expectGrade: "B2", expectRemark: "Very Good"},
		{total: 65, expectGrade: "B3", expectRemark: "Good"},
		{total: 64.5, expectGrade: "C4", expectRemark: "Credit"},
		{total: 55, expectGrade: "C5", expectRemark: "Credit"},
		{total: 50, expectGrade: "C6", expectRemark: "Credit"},
		{total: 49, expectGrade: "D7", expectRemark: "Pass"},
		{total: 40, expectGrade: "E8", expectRemark: "Pass"},
		{total: 39.9, expectGrade: "F9", expectRemark: "Fail"},
		{total: 0, expectGrade: "F9", expectRemark: "Fail"},
		{total: -3, expectGrade: "F9", expectRemark: "Fail"},
	}

	for _, tc := range testCases {
		t.Run(tc.expectGrade, func(t *testing.T) {
			assert := assert.New(t)

			grade, remark := Grade(tc.total)

			assert.Equal(tc.expectGrade, grade, "total %v", tc.total)
			assert.Equal(tc.expectRemark, remark, "total %v", tc.total)
		})
	}
}

func Test_Service_classesAndSubjects(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreateClass(ctx, NewClass{Name: "Basic 6"})
	require.NoError(t, err)
	_, err = svc.CreateClass(ctx, NewClass{Name: "basic 6"})
	assert.ErrorIs(err, sms.ErrConflict)
	jhs, err := svc.CreateClass(ctx, NewClass{Name: "JHS 1", Level: "JHS"})
	require.NoError(t, err)

	classes, err := svc.Classes(ctx)
	assert.NoError(err)
	assert.Len(classes, 2)

	maths, err := svc.CreateSubject(ctx, NewSubject{Name: "Mathematics", Code: "math"})
	require.NoError(t, err)
	assert.Equal("MATH", maths.Code)

	_, err = svc.CreateSubject(ctx, NewSubject{Name: "Maths again", Code: "MATH"})
	assert.ErrorIs(err, sms.ErrConflict)
	_, err = svc.CreateSubject(ctx, NewSubject{Name: "mathematics", Code: "MTH"})
	assert.ErrorIs(err, sms.ErrConflict)
	_, err = svc.CreateSubject(ctx, NewSubject{Name: "English", Code: "ENGLISHLANG"})
	assert.ErrorIs(err, sms.ErrValidation)

	assert.NoError(svc.DeleteClass(ctx, jhs.ID))
	assert.NoError(svc.DeleteSubject(ctx, maths.ID))
	subjects, err := svc.Subjects(ctx)
	assert.NoError(err)
	assert.Empty(subjects)
}

func Test_Service_AssignTeacher(t *testing.T) {
	testCases := []struct {
		name        string
		staffID     func(teacherID string) string
		expectField string
	}{
		{name: "existing staff member", staffID: func(id string) string { return id }},
		{name: "unknown staff member", staffID: func(string) string { return "staff-1" }, expectField: "teacherId"},
		{name: "blank staff id", staffID: func(string) string { return "" }, expectField: "teacherId"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			store := newTestStore(t)
			svc := NewService(store, nil)

			teacher, err := staff.NewService(store, nil).Create(ctx, staff.NewMember{FirstName: "Kwame", Surname: "Asante", Role: staff.RoleTeaching})
			require.NoError(t, err)
			class, err := svc.CreateClass(ctx, NewClass{Name: "JHS 1", Level: "JHS"})
			require.NoError(t, err)

			staffID := tc.staffID(teacher.ID)
			actual, err := svc.AssignTeacher(ctx, class.ID, staffID)

			if tc.expectField != "" {
				var vErr *sms.ValidationError
				if assert.ErrorAs(err, &vErr) && assert.Len(vErr.Fields, 1) {
					assert.Equal(tc.expectField, vErr.Fields[0].Field)
				}
				stored, err := svc.Classes(ctx)
				if assert.NoError(err) && assert.Len(stored, 1) {
					assert.Empty(stored[0].TeacherID)
				}
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(staffID, actual.TeacherID)
		})
	}
}

func Test_Service_CreateClass_unknownTeacher(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateClass(context.Background(), NewClass{Name: "JHS 2", TeacherID: "staff-1"})

	var vErr *sms.ValidationError
	if assert.ErrorAs(t, err, &vErr) {
		assert.Equal(t, "teacherId", vErr.Fields[0].Field)
	}
}

func Test_Service_RecordResult(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	maths, err := svc.CreateSubject(ctx, NewSubject{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)

	testCases := []struct {
		name        string
		input       ResultInput
		expectGrade string
		expectTotal float64
		expectField string
	}{
		{
			name:        "good scores",
			input:       ResultInput{StudentID: st.ID, SubjectID: maths.ID, Term: "Term 1", AcademicYear: "2024/2025", ClassScore: 38, ExamScore: 44.5},
			expectGrade: "A1",
			expectTotal: 82.5,
		},
		{
			name:        "class score over 50",
			input:       ResultInput{StudentID: st.ID, SubjectID: maths.ID, Term: "Term 1", AcademicYear: "2024/2025", ClassScore: 51, ExamScore: 44},
			expectField: "classScore",
		},
		{
			name:        "negative exam score",
			input:       ResultInput{StudentID: st.ID, SubjectID: maths.ID, Term: "Term 1", AcademicYear: "2024/2025", ClassScore: 30, ExamScore: -1},
			expectField: "examScore",
		},
		{
			name:        "unknown subject",
			input:       ResultInput{StudentID: st.ID, SubjectID: "ghost", Term: "Term 1", AcademicYear: "2024/2025"},
			expectField: "subjectId",
		},
		{
			name:        "unknown student",
			input:       ResultInput{StudentID: "ghost", SubjectID: maths.ID, Term: "Term 1", AcademicYear: "2024/2025"},
			expectField: "studentId",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := svc.RecordResult(ctx, tc.input)

			if tc.expectField != "" {
				var vErr *sms.ValidationError
				if assert.ErrorAs(err, &vErr) {
					assert.Equal(tc.expectField, vErr.Fields[0].Field)
				}
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectGrade, actual.Grade)
			assert.Equal(tc.expectTotal, actual.Total)
		})
	}
}

func Test_Service_ReportCard(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc, st := newTestService(t)

	maths, err := svc.CreateSubject(ctx, NewSubject{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)
	english, err := svc.CreateSubject(ctx, NewSubject{Name: "English Language", Code: "ENG"})
	require.NoError(t, err)
	science, err := svc.CreateSubject(ctx, NewSubject{Name: "Integrated Science", Code: "SCI"})
	require.NoError(t, err)

	record := func(subjectID, term string, class, exam float64) {
		_, err := svc.RecordResult(ctx, ResultInput{StudentID: st.ID, SubjectID: subjectID, Term: term, AcademicYear: "2024/2025", ClassScore: class, ExamScore: exam})
		require.NoError(t, err)
	}
	record(maths.ID, "Term 1", 20, 20)
	record(english.ID, "Term 1", 35, 40)
	record(science.ID, "Term 1", 30, 30)
	record(maths.ID, "Term 2", 50, 50)

	// a second entry for the same subject and term replaces the first
	record(maths.ID, "term 1", 40, 42)

	card, err := svc.ReportCard(ctx, st.ID, "Term 1", "2024/2025")
	if !assert.NoError(err) {
		return
	}

	assert.Equal("Ama Owusu", card.StudentName)
	assert.Equal("Basic 6", card.Class)
	if assert.Len(card.Lines, 3) {
		assert.Equal("English Language", card.Lines[0].SubjectName)
		assert.Equal("B2", card.Lines[0].Grade)
		assert.Equal("Integrated Science", card.Lines[1].SubjectName)
		assert.Equal("C4", card.Lines[1].Grade)
		assert.Equal("Mathematics", card.Lines[2].SubjectName)
		assert.Equal(82.0, card.Lines[2].Total)
	}
	assert.Equal(217.0, card.TotalScore)
	assert.Equal(72.3, card.Average)

	results, err := svc.Results(ctx, st.ID)
	assert.NoError(err)
	assert.Len(results, 4)

	empty, err := svc.ReportCard(ctx, st.ID, "Term 3", "2024/2025")
	assert.NoError(err)
	assert.Empty(empty.Lines)
	assert.Equal(0.0, empty.Average)

	_, err = svc.ReportCard(ctx, "ghost", "Term 1", "2024/2025")
	assert.ErrorIs(err, sms.ErrNotFound)
}
