package academics

// Entity types the academics service stores records in.
const (
	ClassesEntityType  = "classes"
	SubjectsEntityType = "subjects"
	ResultsEntityType  = "results"
)

// Score limits. A result's total is out of MaxClassScore + MaxExamScore.
const (
	MaxClassScore = 50
	MaxExamScore  = 50
)

type Class struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Level     string `json:"level,omitempty"`
	TeacherID string `json:"teacherId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type Subject struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Result is one student's score in one subject for one term.
type Result struct {
	ID           string  `json:"id,omitempty"`
	StudentID    string  `json:"studentId"`
	SubjectID    string  `json:"subjectId"`
	Term         string  `json:"term"`
	AcademicYear string  `json:"academicYear"`
	ClassScore   float64 `json:"classScore"`
	ExamScore    float64 `json:"examScore"`
	Total        float64 `json:"total"`
	Grade        string  `json:"grade"`
	Remark       string  `json:"remark"`
	CreatedAt    string  `json:"createdAt,omitempty"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

type NewClass struct {
	Name      string `json:"name" validate:"notblank"`
	Level     string `json:"level"`
	TeacherID string `json:"teacherId"`
}

type NewSubject struct {
	Name string `json:"name" validate:"notblank"`
	Code string `json:"code" validate:"notblank,max=8"`
}

type ResultInput struct {
	StudentID    string  `json:"studentId" validate:"notblank"`
	SubjectID    string  `json:"subjectId" validate:"notblank"`
	Term         string  `json:"term" validate:"notblank"`
	AcademicYear string  `json:"academicYear" validate:"notblank"`
	ClassScore   float64 `json:"classScore" validate:"gte=0,lte=50"`
	ExamScore    float64 `json:"examScore" validate:"gte=0,lte=50"`
}

// ReportLine is one subject on a report card.
type ReportLine struct {
	SubjectID   string  `json:"subjectId"`
	SubjectName string  `json:"subjectName"`
	ClassScore  float64 `json:"classScore"`
	ExamScore   float64 `json:"examScore"`
	Total       float64 `json:"total"`
	Grade       string  `json:"grade"`
	Remark      string  `json:"remark"`
}

// ReportCard is a student's results for one term.
type ReportCard struct {
	StudentID    string       `json:"studentId"`
	StudentName  string       `json:"studentName"`
	Class        string       `json:"class"`
	Term         string       `json:"term"`
	AcademicYear string       `json:"academicYear"`
	Lines        []ReportLine `json:"lines"`
	TotalScore   float64      `json:"totalScore"`
	Average      float64      `json:"average"`
}
