package staff

// EntityType is the collection staff members are stored in.
const EntityType = "staff"

// Roles
const (
	RoleTeaching    = "teaching"
	RoleNonTeaching = "non-teaching"
)

// Statuses
const (
	StatusActive   = "active"
	StatusOnLeave  = "on-leave"
	StatusInactive = "inactive"
)

const (
	serialPrefix = "STAFF"
	serialWidth  = 4
)

type Member struct {
	ID        string  `json:"id,omitempty"`
	StaffID   string  `json:"staffId"`
	FirstName string  `json:"firstName"`
	Surname   string  `json:"surname"`
	Role      string  `json:"role"`
	Position  string  `json:"position,omitempty"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Salary    float64 `json:"salary"`
	Status    string  `json:"status"`
	HireDate  string  `json:"hireDate,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

func (m Member) FullName() string {
	return m.FirstName + " " + m.Surname
}

type NewMember struct {
	FirstName string  `json:"firstName" validate:"notblank"`
	Surname   string  `json:"surname" validate:"notblank"`
	Role      string  `json:"role" validate:"oneof=teaching non-teaching"`
	Position  string  `json:"position"`
	Email     string  `json:"email" validate:"omitempty,email"`
	Phone     string  `json:"phone"`
	Salary    float64 `json:"salary" validate:"gte=0"`
	HireDate  string  `json:"hireDate" validate:"omitempty,isodate"`
}

// UpdateMember is a patch; nil fields are left unchanged.
type UpdateMember struct {
	FirstName *string  `json:"firstName,omitempty"`
	Surname   *string  `json:"surname,omitempty"`
	Role      *string  `json:"role,omitempty" validate:"omitempty,oneof=teaching non-teaching"`
	Position  *string  `json:"position,omitempty"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string  `json:"phone,omitempty"`
	Salary    *float64 `json:"salary,omitempty" validate:"omitempty,gte=0"`
	Status    *string  `json:"status,omitempty" validate:"omitempty,oneof=active on-leave inactive"`
	HireDate  *string  `json:"hireDate,omitempty" validate:"omitempty,isodate"`
}

// ListOptions narrows List. Empty fields are not filtered on.
type ListOptions struct {
	Search string
	Role   string
	Status string
}
