// Package finance keeps the school's income and expense ledger.
package finance

import (
	"context"
	"math"
	"strings"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/entity"
	"github.com/dekarrin/sms/internal/jelsort"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/internal/validate"
)

type Service struct {
	col entity.Collection[Transaction]
	log sms.Logger
}

func NewService(store *entity.Store, log sms.Logger) *Service {
	return &Service{
		col: entity.NewCollection[Transaction](store, EntityType),
		log: logging.WithPrefix(log, "[finance]"),
	}
}

// Record adds a transaction to the ledger. Date defaults to today.
func (s *Service) Record(ctx context.Context, nt NewTransaction) (Transaction, error) {
	if err := validate.Struct(nt); err != nil {
		return Transaction{}, err
	}

	t := Transaction{
		Type:        nt.Type,
		Category:    strings.ToLower(strings.TrimSpace(nt.Category)),
		Amount:      math.Round(nt.Amount*100) / 100,
		Description: strings.TrimSpace(nt.Description),
		Date:        nt.Date,
		Reference:   strings.TrimSpace(nt.Reference),
	}
	if t.Date == "" {
		t.Date = s.col.Store().Now().UTC().Format("2006-01-02")
	} else {
		t.Date = dateOnly(t.Date)
	}

	created, err := s.col.Create(ctx, t)
	if err != nil {
		return Transaction{}, err
	}

	s.log.Debugf("recorded %s of %.2f under %s", created.Type, created.Amount, created.Category)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	return s.col.Get(ctx, id)
}

// List returns the transactions matching opts, most recent date first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Transaction, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	found, err := s.col.Find(ctx, listFilter(opts))
	if err != nil {
		return nil, err
	}

	return jelsort.By(found, jelsort.Then(
		jelsort.Desc(func(t Transaction) string { return t.Date }),
		jelsort.Desc(func(t Transaction) string { return t.CreatedAt }),
	)), nil
}

// Summary totals income and expenses between from and to inclusive. Either
// bound may be empty to leave that side open.
func (s *Service) Summary(ctx context.Context, from, to string) (Summary, error) {
	txns, err := s.List(ctx, ListOptions{From: from, To: to})
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{From: from, To: to, ByCategory: map[string]float64{}, Count: len(txns)}
	for _, t := range txns {
		switch t.Type {
		case TypeIncome:
			sum.Income += t.Amount
			sum.ByCategory[t.Category] += t.Amount
		case TypeExpense:
			sum.Expenses += t.Amount
			sum.ByCategory[t.Category] -= t.Amount
		}
	}

	sum.Income = round(sum.Income)
	sum.Expenses = round(sum.Expenses)
	sum.Net = round(sum.Income - sum.Expenses)
	for k := range sum.ByCategory {
		sum.ByCategory[k] = round(sum.ByCategory[k])
	}
	return sum, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.col.Delete(ctx, id)
}

func listFilter(opts ListOptions) entity.Filter {
	where := entity.Where{}
	if opts.Type != "" {
		where["type"] = entity.Equals(opts.Type)
	}
	if opts.Category != "" {
		where["category"] = entity.EqualsFold(strings.TrimSpace(opts.Category))
	}
	if opts.From == "" && opts.To == "" {
		return where
	}

	from, to := dateOnly(opts.From), dateOnly(opts.To)
	inRange := entity.Func(func(r entity.Record) bool {
		d, ok := r.String("date")
		if !ok {
			return false
		}
		d = dateOnly(d)
		return (from == "" || d >= from) && (to == "" || d <= to)
	}, "DATE_BETWEEN")

	return where.And(inRange)
}

// dateOnly cuts a timestamp down to its YYYY-MM-DD date.
func dateOnly(s string) string {
	if len(s) > len("2006-01-02") {
		return s[:len("2006-01-02")]
	}
	return s
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
