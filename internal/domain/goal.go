package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SavingsGoal is a target amount the user saves towards. A linked goal takes
// its progress from a savings account instead of CurrentAmount.
type SavingsGoal struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TargetAmount    decimal.Decimal `json:"targetAmount"`
	CurrentAmount   decimal.Decimal `json:"currentAmount"`
	CreatedAt       time.Time       `json:"createdAt"`
	LinkedAccountID string          `json:"linkedAccountId,omitempty"`
	Priority        int             `json:"priority"` // lower is filled first
}

// IsLinked reports whether the goal draws from a savings account.
func (g SavingsGoal) IsLinked() bool {
	return g.LinkedAccountID != ""
}

// EffectiveGoalAmounts returns the current amount of every goal keyed by ID.
//
// Unlinked goals report their own CurrentAmount. Goals linked to the same
// account share the account balance in priority order: each takes
// min(remaining, target), floored at zero, before the next one is served.
// A goal linked to an account that no longer exists reports zero.
func EffectiveGoalAmounts(goals []SavingsGoal, accounts []SavingsAccount) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(goals))

	balances := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		balances[a.ID] = a.Amount
	}

	byAccount := make(map[string][]SavingsGoal)
	for _, g := range goals {
		if !g.IsLinked() {
			out[g.ID] = g.CurrentAmount
			continue
		}
		byAccount[g.LinkedAccountID] = append(byAccount[g.LinkedAccountID], g)
	}

	for accountID, linked := range byAccount {
		remaining, ok := balances[accountID]
		sortByPriority(linked)
		for _, g := range linked {
			if !ok {
				out[g.ID] = decimal.Zero
				continue
			}
			share := decimal.Min(remaining, g.TargetAmount)
			if share.IsNegative() {
				share = decimal.Zero
			}
			out[g.ID] = share
			remaining = remaining.Sub(share)
		}
	}

	return out
}

// GoalProgress returns the completion percentage of a goal, capped at 100.
// A goal with a non-positive target counts as complete.
func GoalProgress(target, current decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.NewFromInt(100)
	}
	pct := current.Div(target).Mul(decimal.NewFromInt(100))
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct
}

func sortByPriority(goals []SavingsGoal) {
	sort.SliceStable(goals, func(i, j int) bool {
		if goals[i].Priority != goals[j].Priority {
			return goals[i].Priority < goals[j].Priority
		}
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.Before(goals[j].CreatedAt)
		}
		return goals[i].ID < goals[j].ID
	})
}
