package projection

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/recurrence"
	"github.com/shopspring/decimal"
)

// DefaultCashflowWindow is the number of trailing months in the cashflow chart.
const DefaultCashflowWindow = 12

var monthsPerYear = decimal.NewFromInt(12)

// MonthTotals is the income and outgoing trend of one month.
type MonthTotals struct {
	Month    string          `json:"month"` // YYYY-MM
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"` // expenses and payments combined
}

// MonthlyTotals buckets income and outgoings into the windowMonths months
// ending at today's month, oldest first.
//
// Monthly amounts count once per month (installments only inside their
// window), yearly amounts are spread as amount/12 over every month, and
// one-time amounts count in the month of their date. Pending one-time
// payments are left out. The yearly spread is a trend approximation.
func MonthlyTotals(txs []domain.Transaction, today civil.Date, windowMonths int) []MonthTotals {
	if windowMonths <= 0 {
		windowMonths = DefaultCashflowWindow
	}
	current := calendar.MonthOf(today)

	out := make([]MonthTotals, 0, windowMonths)
	for i := windowMonths - 1; i >= 0; i-- {
		m := current.AddMonths(-i)
		row := MonthTotals{
			Month:    m.String(),
			Label:    m.Label(),
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
		for _, tx := range txs {
			amount := monthlyShare(tx, m)
			if amount.IsZero() {
				continue
			}
			switch tx.(type) {
			case *domain.Income:
				row.Income = row.Income.Add(amount)
			case *domain.Expense, *domain.Payment:
				row.Expenses = row.Expenses.Add(amount)
			}
		}
		out = append(out, row)
	}
	return out
}

// monthlyShare is what tx contributes to month m in trend terms.
func monthlyShare(tx domain.Transaction, m calendar.Month) decimal.Decimal {
	if !recurrence.Counts(tx, recurrence.Realized) {
		return decimal.Zero
	}
	e := tx.Base()
	switch e.Recurrence {
	case domain.RecurrenceMonthly, domain.RecurrenceOnce:
		if recurrence.OccursInMonth(tx, m) {
			return e.Amount
		}
	case domain.RecurrenceYearly:
		return e.Amount.Div(monthsPerYear)
	}
	return decimal.Zero
}
