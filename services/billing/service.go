// Package billing manages student fee bills and the payments made against
// them.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
	"github.com/dekarrin/sms/services/students"
)

type Service struct {
	bills    entity.Collection[Bill]
	payments entity.Collection[Payment]
	students entity.Collection[students.Student]
	log      sms.Logger

	// mtx is held across the multi-call sequences of CreateBill and
	// RecordPayment so bill numbers and paid amounts stay consistent within
	// this process.
	mtx sync.Mutex
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		bills:    entity.NewCollection[Bill](store, BillsEntityType),
		payments: entity.NewCollection[Payment](store, PaymentsEntityType),
		students: entity.NewCollection[students.Student](store, students.EntityType),
		log:      logging.WithPrefix(log, "[billing]"),
	}
}

// CreateBill issues an unpaid bill to an existing student. The total is the
// sum of the item amounts.
func (s *Service) CreateBill(ctx context.Context, nb NewBill) (Bill, error) {
	if err := validate.Struct(nb); err != nil {
		return Bill{}, err
	}

	items := make([]Item, len(nb.Items))
	for i, it := range nb.Items {
		items[i] = Item{Description: strings.TrimSpace(it.Description), Amount: roundMoney(it.Amount)}
		if items[i].Amount <= 0 {
			return Bill{}, sms.Validationf(fmt.Sprintf("items[%d].amount", i), "must be at least 0.01")
		}
	}

	if _, err := s.students.Get(ctx, nb.StudentID); err != nil {
		if errors.Is(err, sms.ErrNotFound) {
			return Bill{}, sms.Validationf("studentId", "no student with ID %q exists", nb.StudentID)
		}
		return Bill{}, err
	}

	b := Bill{
		StudentID:    nb.StudentID,
		Term:         strings.TrimSpace(nb.Term),
		AcademicYear: strings.TrimSpace(nb.AcademicYear),
		Items:        items,
		Status:       StatusUnpaid,
		DueDate:      nb.DueDate,
	}
	for _, it := range items {
		b.Total += it.Amount
	}
	b.Total = roundMoney(b.Total)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, err := s.bills.Records(ctx)
	if err != nil {
		return Bill{}, err
	}
	b.BillNo = entity.NextSerial(existing, "billNo", serialPrefix, serialWidth)

	created, err := s.bills.Create(ctx, b)
	if err != nil {
		return Bill{}, err
	}

	s.log.Debugf("issued %s for %.2f to student %s", created.BillNo, created.Total, created.StudentID)
	return created, nil
}

func (s *Service) GetBill(ctx context.Context, id string) (Bill, error) {
	return s.bills.Get(ctx, id)
}

// Bills returns every bill, newest bill number first.
func (s *Service) Bills(ctx context.Context) ([]Bill, error) {
	all, err := s.bills.All(ctx)
	if err != nil {
		return nil, err
	}
	return jelsort.By(all, jelsort.Desc(func(b Bill) string { return b.BillNo })), nil
}

// BillsForStudent returns the bills issued to a student in the order they
// were issued.
func (s *Service) BillsForStudent(ctx context.Context, studentID string) ([]Bill, error) {
	found, err := s.bills.Find(ctx, entity.Where{"studentId": entity.Equals(studentID)})
	if err != nil {
		return nil, err
	}
	return jelsort.By(found, jelsort.Asc(func(b Bill) string { return b.BillNo })), nil
}

// RecordPayment records a payment against a bill and updates the bill's paid
// amount and status. The amount must not exceed what is outstanding.
//
// The payment and the bill are separate collections and are written one after
// the other. If the bill update fails, the payment has already been stored.
func (s *Service) RecordPayment(ctx context.Context, np NewPayment) (Payment, Bill, error) {
	if err := validate.Struct(np); err != nil {
		return Payment{}, Bill{}, err
	}
	amount := roundMoney(np.Amount)
	if amount <= 0 {
		return Payment{}, Bill{}, sms.Validationf("amount", "must be at least 0.01")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	bill, err := s.bills.Get(ctx, np.BillID)
	if err != nil {
		return Payment{}, Bill{}, err
	}

	outstanding := bill.Outstanding()
	if outstanding <= 0 {
		return Payment{}, Bill{}, sms.Validationf("billId", "bill %s is already paid", bill.BillNo)
	}
	if amount > outstanding {
		return Payment{}, Bill{}, sms.Validationf("amount", "must not exceed the outstanding %.2f", outstanding)
	}

	p := Payment{
		BillID:    bill.ID,
		StudentID: bill.StudentID,
		Amount:    amount,
		Method:    np.Method,
		Reference: strings.TrimSpace(np.Reference),
		PaidAt:    np.PaidAt,
	}
	if p.Method == "" {
		p.Method = MethodCash
	}
	if p.PaidAt == "" {
		p.PaidAt = s.bills.Store().Now().UTC().Format("2006-01-02")
	}

	p, err = s.payments.Create(ctx, p)
	if err != nil {
		return Payment{}, Bill{}, err
	}

	paid := roundMoney(bill.AmountPaid + amount)
	bill, err = s.bills.Update(ctx, bill.ID, billPatch{AmountPaid: paid, Status: statusFor(bill.Total, paid)})
	if err != nil {
		return p, Bill{}, fmt.Errorf("payment %s stored but bill not updated: %w", p.ID, err)
	}

	s.log.Infof("payment of %.2f recorded on %s; %s", amount, bill.BillNo, bill.Status)
	return p, bill, nil
}

// Payments returns the payments made against a bill.
func (s *Service) Payments(ctx context.Context, billID string) ([]Payment, error) {
	return s.payments.Find(ctx, entity.Where{"billId": entity.Equals(billID)})
}

// Outstanding returns the total a student still owes across all their bills.
func (s *Service) Outstanding(ctx context.Context, studentID string) (float64, error) {
	bills, err := s.bills.Find(ctx, entity.Where{
		"studentId": entity.Equals(studentID),
		"status":    entity.DoesNot(entity.Equals(StatusPaid)),
	})
	if err != nil {
		return 0, err
	}

	var owed float64
	for _, b := range bills {
		owed += b.Outstanding()
	}
	return roundMoney(owed), nil
}

// DeleteBill removes a bill along with every payment made against it.
func (s *Service) DeleteBill(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, err := s.bills.Get(ctx, id); err != nil {
		return err
	}

	payments, err := s.Payments(ctx, id)
	if err != nil {
		return err
	}
	if len(payments) > 0 {
		ids := make([]string, len(payments))
		for i := range payments {
			ids[i] = payments[i].ID
		}
		if _, err := s.payments.DeleteMany(ctx, ids); err != nil {
			return err
		}
	}

	return s.bills.Delete(ctx, id)
}

func statusFor(total, paid float64) string {
	switch {
	case paid <= 0:
		return StatusUnpaid
	case paid < total:
		return StatusPartial
	default:
		return StatusPaid
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
