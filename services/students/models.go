package students

import "strings"

// EntityType is the collection students are stored in.
const EntityType = "students"

// Statuses
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusGraduated   = "graduated"
	StatusTransferred = "transferred"
)

const (
	serialPrefix = "STU"
	serialWidth  = 4
)

type Student struct {
	ID            string `json:"id,omitempty"`
	StudentID     string `json:"studentId"`
	FirstName     string `json:"firstName"`
	Surname       string `json:"surname"`
	OtherNames    string `json:"otherNames,omitempty"`
	Gender        string `json:"gender,omitempty"`
	DateOfBirth   string `json:"dateOfBirth,omitempty"`
	Class         string `json:"class,omitempty"`
	GuardianName  string `json:"guardianName,omitempty"`
	GuardianPhone string `json:"guardianPhone,omitempty"`
	Status        string `json:"status"`
	AdmissionDate string `json:"admissionDate,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// FullName is the first name, other names, and surname joined with spaces.
func (s Student) FullName() string {
	parts := []string{s.FirstName, s.OtherNames, s.Surname}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

type NewStudent struct {
	FirstName     string `json:"firstName" validate:"notblank"`
	Surname       string `json:"surname" validate:"notblank"`
	OtherNames    string `json:"otherNames"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female"`
	DateOfBirth   string `json:"dateOfBirth" validate:"omitempty,isodate"`
	Class         string `json:"class"`
	GuardianName  string `json:"guardianName"`
	GuardianPhone string `json:"guardianPhone"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive graduated transferred"`
	AdmissionDate string `json:"admissionDate" validate:"omitempty,isodate"`
}

// UpdateStudent is a patch; nil fields are left unchanged.
type UpdateStudent struct {
	FirstName     *string `json:"firstName,omitempty"`
	Surname       *string `json:"surname,omitempty"`
	OtherNames    *string `json:"otherNames,omitempty"`
	Gender        *string `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	DateOfBirth   *string `json:"dateOfBirth,omitempty" validate:"omitempty,isodate"`
	Class         *string `json:"class,omitempty"`
	GuardianName  *string `json:"guardianName,omitempty"`
	GuardianPhone *string `json:"guardianPhone,omitempty"`
	Status        *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive graduated transferred"`
	AdmissionDate *string `json:"admissionDate,omitempty" validate:"omitempty,isodate"`
}

// ListOptions narrows List. Empty fields are not filtered on.
type ListOptions struct {
	// Search matches case-insensitively against any name or the student ID.
	Search string
	Class  string
	Status string
}
