package projection

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// DebtPoint is the outstanding installment balance at one month.
type DebtPoint struct {
	Month         string          `json:"month"`
	Label         string          `json:"label"`
	RemainingDebt decimal.Decimal `json:"remainingDebt"`
}

// InstallmentPayments returns the monthly payments that carry installment details.
func InstallmentPayments(txs []domain.Transaction) []*domain.Payment {
	var out []*domain.Payment
	for _, tx := range txs {
		p, ok := tx.(*domain.Payment)
		if !ok || p.Recurrence != domain.RecurrenceMonthly || p.Installment == nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProjectPayoff walks forward from today's month summing what is still
// owed on every installment plan. It stops after the first month with
// nothing left, or one month past the latest completion date.
func ProjectPayoff(txs []domain.Transaction, today civil.Date) []DebtPoint {
	payments := InstallmentPayments(txs)
	if len(payments) == 0 {
		return []DebtPoint{}
	}

	bound := calendar.MonthOf(payments[0].Installment.CompletionDate)
	for _, p := range payments[1:] {
		if m := calendar.MonthOf(p.Installment.CompletionDate); m.After(bound) {
			bound = m
		}
	}
	bound = bound.AddMonths(1)

	var out []DebtPoint
	for m := calendar.MonthOf(today); !m.After(bound); m = m.AddMonths(1) {
		total := decimal.Zero
		for _, p := range payments {
			total = total.Add(remainingAt(p, m))
		}
		out = append(out, DebtPoint{Month: m.String(), Label: m.Label(), RemainingDebt: total})
		if total.IsZero() {
			break
		}
	}
	if out == nil {
		out = []DebtPoint{}
	}
	return out
}

// remainingAt is the obligation left on p during month m. A plan that has
// not started yet is owed in full.
func remainingAt(p *domain.Payment, m calendar.Month) decimal.Decimal {
	start := calendar.MonthOf(p.Date)
	end := calendar.MonthOf(p.Installment.CompletionDate)
	n := p.Installment.NumberOfPayments

	switch {
	case m.After(end):
		return decimal.Zero
	case !m.After(start):
		return p.Amount.Mul(decimal.NewFromInt(int64(n)))
	default:
		left := n - m.MonthsSince(start)
		if left < 0 {
			left = 0
		}
		return p.Amount.Mul(decimal.NewFromInt(int64(left)))
	}
}
