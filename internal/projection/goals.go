package projection

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/recurrence"
	"github.com/shopspring/decimal"
)

// MaxGoalMonths caps the savings projection at a century.
const MaxGoalMonths = 1200

// GoalPoint is the cumulative amount saved by one month.
type GoalPoint struct {
	Month           string          `json:"month"`
	Label           string          `json:"label"`
	CumulativeSaved decimal.Decimal `json:"cumulativeSaved"`
}

// GoalProjection is the savings-goal payoff curve.
type GoalProjection struct {
	Points            []GoalPoint     `json:"points"`
	TotalTargetAmount decimal.Decimal `json:"totalTargetAmount"`
	StartingSavings   decimal.Decimal `json:"startingSavings"`
	NetMonthlySavings decimal.Decimal `json:"netMonthlySavings"`
	Reachable         bool            `json:"reachable"`
}

// MonthlyFlows is the recurring monthly income and outgoings as of today's
// month, with yearly amounts spread as amount/12.
type MonthlyFlows struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Payments decimal.Decimal `json:"payments"`
}

// Net is income minus expenses minus payments.
func (f MonthlyFlows) Net() decimal.Decimal {
	return f.Income.Sub(f.Expenses).Sub(f.Payments)
}

// RecurringFlows totals the recurring transactions. Installment payments
// count only while active in today's month; one-time entries are ignored.
func RecurringFlows(txs []domain.Transaction, today civil.Date) MonthlyFlows {
	m := calendar.MonthOf(today)
	flows := MonthlyFlows{Income: decimal.Zero, Expenses: decimal.Zero, Payments: decimal.Zero}

	for _, tx := range txs {
		e := tx.Base()
		var amount decimal.Decimal
		switch e.Recurrence {
		case domain.RecurrenceMonthly:
			if !recurrence.OccursInMonth(tx, m) {
				continue
			}
			amount = e.Amount
		case domain.RecurrenceYearly:
			amount = e.Amount.Div(monthsPerYear)
		default:
			continue
		}

		switch tx.(type) {
		case *domain.Income:
			flows.Income = flows.Income.Add(amount)
		case *domain.Expense:
			flows.Expenses = flows.Expenses.Add(amount)
		case *domain.Payment:
			flows.Payments = flows.Payments.Add(amount)
		}
	}
	return flows
}

// ProjectGoalPayoff projects how long current net savings take to cover the
// targets of all goals. Progress starts from the unlinked goals' current
// amounts; linked goals draw on account balances and are not counted as
// new savings. With no positive net savings the goals are unreachable and
// no points are produced.
func ProjectGoalPayoff(goals []domain.SavingsGoal, txs []domain.Transaction, today civil.Date) GoalProjection {
	target := decimal.Zero
	start := decimal.Zero
	for _, g := range goals {
		target = target.Add(g.TargetAmount)
		if !g.IsLinked() {
			start = start.Add(g.CurrentAmount)
		}
	}

	net := RecurringFlows(txs, today).Net()
	out := GoalProjection{
		Points:            []GoalPoint{},
		TotalTargetAmount: target,
		StartingSavings:   start,
		NetMonthlySavings: net,
	}

	if !target.IsPositive() {
		out.Reachable = true
		return out
	}
	if !net.IsPositive() {
		return out
	}

	first := calendar.MonthOf(today)
	for i := 0; i <= MaxGoalMonths; i++ {
		m := first.AddMonths(i)
		saved := decimal.Min(start.Add(net.Mul(decimal.NewFromInt(int64(i)))), target)
		out.Points = append(out.Points, GoalPoint{Month: m.String(), Label: m.Label(), CumulativeSaved: saved})
		if !saved.LessThan(target) {
			out.Reachable = true
			break
		}
	}
	return out
}
