// Package insights turns a profile into the structured snapshot handed to
// the AI service and asks it for a narrative summary.
package insights

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/projection"
	"github.com/shopspring/decimal"
)

// Snapshot is the structured financial data a summary is generated from.
type Snapshot struct {
	Profile  string     `json:"profile"`
	AsOf     civil.Date `json:"asOf"`
	Currency string     `json:"currency"`

	CurrentBalance    decimal.Decimal `json:"currentBalance"`
	MonthlyIncome     decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpenses   decimal.Decimal `json:"monthlyExpenses"`
	MonthlyPayments   decimal.Decimal `json:"monthlyPayments"`
	NetMonthlySavings decimal.Decimal `json:"netMonthlySavings"`

	RemainingDebt decimal.Decimal `json:"remainingDebt"`
	DebtFreeMonth string          `json:"debtFreeMonth,omitempty"`

	Goals          []GoalSummary           `json:"goals"`
	GoalsReachable bool                    `json:"goalsReachable"`
	GoalsDoneMonth string                  `json:"goalsDoneMonth,omitempty"`
	Upcoming       []projection.Occurrence `json:"upcomingPayments"`
	Cashflow       []projection.MonthTotals `json:"cashflow"`
}

// GoalSummary is one savings goal with its effective progress.
type GoalSummary struct {
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Current  decimal.Decimal `json:"current"`
	Progress decimal.Decimal `json:"progressPercent"`
	Linked   bool            `json:"linked"`
}

// BuildSnapshot runs the projections needed for a summary as of today.
func BuildSnapshot(name string, p *domain.ProfileData, settings domain.Settings, today civil.Date) Snapshot {
	txs := []domain.Transaction(p.Transactions)
	flows := projection.RecurringFlows(txs, today)

	s := Snapshot{
		Profile:           name,
		AsOf:              today,
		Currency:          settings.WithDefaults().Currency,
		CurrentBalance:    p.CurrentBalance,
		MonthlyIncome:     flows.Income,
		MonthlyExpenses:   flows.Expenses,
		MonthlyPayments:   flows.Payments,
		NetMonthlySavings: flows.Net(),
		RemainingDebt:     decimal.Zero,
		Goals:             []GoalSummary{},
		Upcoming:          projection.UpcomingPayments(txs, calendar.MonthOf(today)),
		Cashflow:          projection.MonthlyTotals(txs, today, projection.DefaultCashflowWindow),
	}

	debt := projection.ProjectPayoff(txs, today)
	if len(debt) > 0 {
		s.RemainingDebt = debt[0].RemainingDebt
		if last := debt[len(debt)-1]; last.RemainingDebt.IsZero() {
			s.DebtFreeMonth = last.Month
		}
	}

	effective := p.EffectiveGoalAmounts()
	for _, g := range p.Goals {
		current := effective[g.ID]
		s.Goals = append(s.Goals, GoalSummary{
			Name:     g.Name,
			Target:   g.TargetAmount,
			Current:  current,
			Progress: domain.GoalProgress(g.TargetAmount, current).Round(1),
			Linked:   g.IsLinked(),
		})
	}

	goals := projection.ProjectGoalPayoff(p.Goals, txs, today)
	s.GoalsReachable = goals.Reachable
	if n := len(goals.Points); n > 0 {
		s.GoalsDoneMonth = goals.Points[n-1].Month
	}
	return s
}
