// Package payroll generates monthly payslips for staff and pays them out
// through the finance ledger.
package payroll

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
	"github.com/dekarrin/sms/services/finance"
	"github.com/dekarrin/sms/services/staff"
)

type Service struct {
	col     entity.Collection[Payslip]
	staff   *staff.Service
	finance *finance.Service
	log     sms.Logger

	mtx sync.Mutex
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col:     entity.NewCollection[Payslip](store, EntityType),
		staff:   staff.NewService(store, log),
		finance: finance.NewService(store, log),
		log:     logging.WithPrefix(log, "[payroll]"),
	}
}

// Generate creates a pending payslip for month (YYYY-MM) for every active
// staff member who does not yet have one. It returns only the payslips it
// created; calling it again for the same month creates none.
func (s *Service) Generate(ctx context.Context, month string) ([]Payslip, error) {
	if err := validate.Struct(monthArg{Month: month}); err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, err := s.col.Find(ctx, entity.Where{"month": entity.Equals(month)})
	if err != nil {
		return nil, err
	}
	has := make(map[string]bool, len(existing))
	for _, p := range existing {
		has[p.StaffID] = true
	}

	active, err := s.staff.Active(ctx)
	if err != nil {
		return nil, err
	}

	created := []Payslip{}
	for _, m := range active {
		if has[m.ID] {
			continue
		}
		p, err := s.col.Create(ctx, Payslip{
			StaffID:     m.ID,
			StaffName:   m.FullName(),
			Month:       month,
			BasicSalary: m.Salary,
			NetPay:      m.Salary,
			Status:      StatusPending,
		})
		if err != nil {
			return created, err
		}
		created = append(created, p)
	}

	s.log.Infof("generated %d payslip(s) for %s", len(created), month)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Payslip, error) {
	return s.col.Get(ctx, id)
}

// List returns the payslips for month sorted by staff name. An empty month
// lists every payslip, newest month first.
func (s *Service) List(ctx context.Context, month string) ([]Payslip, error) {
	var f entity.Filter
	if month != "" {
		if err := validate.Struct(monthArg{Month: month}); err != nil {
			return nil, err
		}
		f = entity.Where{"month": entity.Equals(month)}
	}

	found, err := s.col.Find(ctx, f)
	if err != nil {
		return nil, err
	}

	return jelsort.By(found, jelsort.Then(
		jelsort.Desc(func(p Payslip) string { return p.Month }),
		jelsort.Fold(func(p Payslip) string { return p.StaffName }),
	)), nil
}

// Adjust sets the allowances and deductions of a pending payslip and
// recomputes its net pay.
func (s *Service) Adjust(ctx context.Context, id string, adj Adjustment) (Payslip, error) {
	if err := validate.Struct(adj); err != nil {
		return Payslip{}, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, err := s.col.Get(ctx, id)
	if err != nil {
		return Payslip{}, err
	}
	if p.Status != StatusPending {
		return Payslip{}, sms.Validationf("status", "payslip for %s is already paid", p.Month)
	}

	net := roundMoney(p.BasicSalary + adj.Allowances - adj.Deductions)
	if net < 0 {
		return Payslip{}, sms.Validationf("deductions", "must not exceed basic salary plus allowances")
	}

	return s.col.Update(ctx, id, payslipPatch{Allowances: &adj.Allowances, Deductions: &adj.Deductions, NetPay: &net})
}

// MarkPaid marks a pending payslip paid and records its net pay as a salary
// expense. The payslip is updated first; if recording the expense then
// fails, the returned error says so and the payslip stays paid.
func (s *Service) MarkPaid(ctx context.Context, id string) (Payslip, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p, err := s.col.Get(ctx, id)
	if err != nil {
		return Payslip{}, err
	}
	if p.Status == StatusPaid {
		return Payslip{}, sms.Validationf("status", "payslip for %s is already paid", p.Month)
	}

	today := s.col.Store().Now().UTC().Format("2006-01-02")
	p, err = s.col.Update(ctx, id, payslipPatch{Status: StatusPaid, PaidAt: today})
	if err != nil {
		return Payslip{}, err
	}

	if p.NetPay > 0 {
		_, err = s.finance.Record(ctx, finance.NewTransaction{
			Type:        finance.TypeExpense,
			Category:    finance.CategorySalaries,
			Amount:      p.NetPay,
			Description: fmt.Sprintf("Salary for %s, %s", p.StaffName, p.Month),
			Date:        today,
			Reference:   p.ID,
		})
		if err != nil {
			return p, fmt.Errorf("payslip %s marked paid but expense not recorded: %w", p.ID, err)
		}
	}

	s.log.Debugf("paid %.2f to %s for %s", p.NetPay, p.StaffName, p.Month)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
