package payroll

// EntityType is the collection payslips are stored in.
const EntityType = "payslips"

// Payslip statuses
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Payslip is one staff member's pay for one month.
type Payslip struct {
	ID          string  `json:"id,omitempty"`
	StaffID     string  `json:"staffId"`
	StaffName   string  `json:"staffName"`
	Month       string  `json:"month"`
	BasicSalary float64 `json:"basicSalary"`
	Allowances  float64 `json:"allowances"`
	Deductions  float64 `json:"deductions"`
	NetPay      float64 `json:"netPay"`
	Status      string  `json:"status"`
	PaidAt      string  `json:"paidAt,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

type Adjustment struct {
	Allowances float64 `json:"allowances" validate:"gte=0"`
	Deductions float64 `json:"deductions" validate:"gte=0"`
}

type monthArg struct {
	Month string `json:"month" validate:"month"`
}

type payslipPatch struct {
	Allowances *float64 `json:"allowances,omitempty"`
	Deductions *float64 `json:"deductions,omitempty"`
	NetPay     *float64 `json:"netPay,omitempty"`
	Status     string   `json:"status,omitempty"`
	PaidAt     string   `json:"paidAt,omitempty"`
}
