package tlm

// Entity types the TLM service stores records in.
const (
	CategoriesEntityType = "tlm_categories"
	MaterialsEntityType  = "tlms"
)

// Material conditions
const (
	ConditionNew     = "new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
	ConditionDamaged = "damaged"
)

type Category struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Material is a teaching or learning material held by the school.
// CategoryName is filled in from the category when materials are listed and
// is not stored.
type Material struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"-"`
	Subject      string `json:"subject,omitempty"`
	Class        string `json:"class,omitempty"`
	Quantity     int    `json:"quantity"`
	Condition    string `json:"condition"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

type NewCategory struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description"`
}

type NewMaterial struct {
	Title      string `json:"title" validate:"notblank"`
	CategoryID string `json:"categoryId" validate:"notblank"`
	Subject    string `json:"subject"`
	Class      string `json:"class"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
	Condition  string `json:"condition" validate:"omitempty,oneof=new good fair poor damaged"`
}

type UpdateMaterial struct {
	Title      *string `json:"title,omitempty"`
	CategoryID *string `json:"categoryId,omitempty"`
	Subject    *string `json:"subject,omitempty"`
	Class      *string `json:"class,omitempty"`
	Quantity   *int    `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Condition  *string `json:"condition,omitempty" validate:"omitempty,oneof=new good fair poor damaged"`
}

// ListOptions narrows List. Empty fields are not filtered on.
type ListOptions struct {
	CategoryID string
	Class      string
	Search     string
}
