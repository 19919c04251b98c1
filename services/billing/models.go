package billing

// Entity types the billing service stores records in.
const (
	BillsEntityType    = "bills"
	PaymentsEntityType = "payments"
)

// Bill statuses
const (
	StatusUnpaid  = "unpaid"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// Payment methods
const (
	MethodCash        = "cash"
	MethodMobileMoney = "mobile-money"
	MethodBank        = "bank"
	MethodCheque      = "cheque"
)

const (
	serialPrefix = "BILL"
	serialWidth  = 6
)

type Item struct {
	Description string  `json:"description" validate:"notblank"`
	Amount      float64 `json:"amount" validate:"gt=0"`
}

// Bill is a set of fees charged to one student for a term.
type Bill struct {
	ID           string  `json:"id,omitempty"`
	BillNo       string  `json:"billNo"`
	StudentID    string  `json:"studentId"`
	Term         string  `json:"term"`
	AcademicYear string  `json:"academicYear"`
	Items        []Item  `json:"items"`
	Total        float64 `json:"total"`
	AmountPaid   float64 `json:"amountPaid"`
	Status       string  `json:"status"`
	DueDate      string  `json:"dueDate,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

// Outstanding is what is still owed on the bill.
func (b Bill) Outstanding() float64 {
	return roundMoney(b.Total - b.AmountPaid)
}

type Payment struct {
	ID        string  `json:"id,omitempty"`
	BillID    string  `json:"billId"`
	StudentID string  `json:"studentId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference,omitempty"`
	PaidAt    string  `json:"paidAt"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// NewBill is the input to CreateBill. StudentID is the store id of the
// student, not their STU number.
type NewBill struct {
	StudentID    string `json:"studentId" validate:"notblank"`
	Term         string `json:"term" validate:"notblank"`
	AcademicYear string `json:"academicYear" validate:"notblank"`
	Items        []Item `json:"items" validate:"required,min=1,dive"`
	DueDate      string `json:"dueDate" validate:"omitempty,isodate"`
}

type NewPayment struct {
	BillID    string  `json:"billId" validate:"notblank"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Method    string  `json:"method" validate:"omitempty,oneof=cash mobile-money bank cheque"`
	Reference string  `json:"reference"`
	PaidAt    string  `json:"paidAt" validate:"omitempty,isodate"`
}

// billPatch carries the fields RecordPayment changes on a bill.
type billPatch struct {
	AmountPaid float64 `json:"amountPaid"`
	Status     string  `json:"status"`
}
