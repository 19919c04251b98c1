package finance

// EntityType is the collection transactions are stored in.
const EntityType = "transactions"

// Transaction types
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Categories used by other services when they record transactions.
const (
	CategoryFees     = "fees"
	CategorySalaries = "salaries"
)

type Transaction struct {
	ID          string  `json:"id,omitempty"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	Reference   string  `json:"reference,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

type NewTransaction struct {
	Type        string  `json:"type" validate:"oneof=income expense"`
	Category    string  `json:"category" validate:"notblank"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description"`
	Date        string  `json:"date" validate:"omitempty,isodate"`
	Reference   string  `json:"reference"`
}

// ListOptions narrows List. From and To are inclusive dates in YYYY-MM-DD
// form; empty fields are not filtered on.
type ListOptions struct {
	Type     string `validate:"omitempty,oneof=income expense"`
	Category string
	From     string `validate:"omitempty,isodate"`
	To       string `validate:"omitempty,isodate"`
}

// Summary totals the transactions in a date range.
type Summary struct {
	From       string             `json:"from,omitempty"`
	To         string             `json:"to,omitempty"`
	Income     float64            `json:"income"`
	Expenses   float64            `json:"expenses"`
	Net        float64            `json:"net"`
	ByCategory map[string]float64 `json:"byCategory"`
	Count      int                `json:"count"`
}
