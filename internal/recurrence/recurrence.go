// Package recurrence decides when a transaction contributes to a balance.
// It is the shared primitive of every projection.
package recurrence

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// StatusFilter selects how one-time payments are treated by a consumer.
type StatusFilter int

const (
	// Realized counts only settled one-time payments (historical balances).
	Realized StatusFilter = iota
	// Upcoming counts one-time payments whatever their status (calendar views).
	Upcoming
)

// OccursOn reports whether tx falls on day.
func OccursOn(tx domain.Transaction, day civil.Date) bool {
	e := tx.Base()
	switch e.Recurrence {
	case domain.RecurrenceOnce:
		return day == e.Date
	case domain.RecurrenceMonthly:
		if day.Day != calendar.ClampDay(e.Date.Day, day.Year, day.Month) {
			return false
		}
		return inWindow(tx, day)
	case domain.RecurrenceYearly:
		return day.Month == e.Date.Month &&
			day.Day == calendar.ClampDay(e.Date.Day, day.Year, day.Month)
	default:
		return false
	}
}

// OccursInMonth reports whether tx has an occurrence in month m.
func OccursInMonth(tx domain.Transaction, m calendar.Month) bool {
	e := tx.Base()
	switch e.Recurrence {
	case domain.RecurrenceOnce:
		return m.Contains(e.Date)
	case domain.RecurrenceMonthly:
		return inWindow(tx, m.Day(e.Date.Day))
	case domain.RecurrenceYearly:
		return m.Month == e.Date.Month
	default:
		return false
	}
}

// OccurrenceIn returns the date tx falls on in month m, if any.
func OccurrenceIn(tx domain.Transaction, m calendar.Month) (civil.Date, bool) {
	if !OccursInMonth(tx, m) {
		return civil.Date{}, false
	}
	if tx.Base().Recurrence == domain.RecurrenceOnce {
		return tx.Base().Date, true
	}
	return m.Day(tx.Base().Date.Day), true
}

// Counts reports whether tx passes the status filter.
func Counts(tx domain.Transaction, filter StatusFilter) bool {
	switch t := tx.(type) {
	case *domain.Income, *domain.Expense:
		return true
	case *domain.Payment:
		if t.Recurrence != domain.RecurrenceOnce || filter == Upcoming {
			return true
		}
		return t.IsSettled()
	default:
		return false
	}
}

// Contribution is the signed amount tx adds to the balance on day, or zero.
func Contribution(tx domain.Transaction, day civil.Date, filter StatusFilter) decimal.Decimal {
	if !Counts(tx, filter) || !OccursOn(tx, day) {
		return decimal.Zero
	}
	return domain.Signed(tx)
}

// NetOn sums the contributions of all transactions on day.
func NetOn(txs []domain.Transaction, day civil.Date, filter StatusFilter) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range txs {
		net = net.Add(Contribution(tx, day, filter))
	}
	return net
}

// inWindow clips installment payments to date..completionDate inclusive.
// Other kinds have no window.
func inWindow(tx domain.Transaction, day civil.Date) bool {
	switch t := tx.(type) {
	case *domain.Income, *domain.Expense:
		return true
	case *domain.Payment:
		if t.Installment == nil {
			return !day.Before(t.Date)
		}
		return !day.Before(t.Date) && !day.After(t.Installment.CompletionDate)
	default:
		return false
	}
}
