// Package projection holds the pure calculations behind the dashboard
// charts. Every function depends only on its arguments.
package projection

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/recurrence"
	"github.com/shopspring/decimal"
)

// MaxBalanceMonths is how far from today's month a balance walk may reach.
const MaxBalanceMonths = 120

// CheckBalanceMonth rejects a month further than MaxBalanceMonths from
// today's month, since the walk replays every day in between.
func CheckBalanceMonth(month calendar.Month, today civil.Date) error {
	diff := month.MonthsSince(calendar.MonthOf(today))
	if diff < 0 {
		diff = -diff
	}
	if diff > MaxBalanceMonths {
		return fmt.Errorf("%w: month %s is more than %d months from %s", domain.ErrInvalid, month, MaxBalanceMonths, today)
	}
	return nil
}

// DayBalance is the end-of-day balance of one calendar day.
type DayBalance struct {
	Date      civil.Date      `json:"date"`
	Balance   decimal.Decimal `json:"balance"`
	HasChange bool            `json:"hasChange"`
}

// ProjectMonthBalances walks every day of month. The balance before the
// month's first day is rebuilt from the CurrentBalance snapshot at today,
// backwards when the month starts on or before today and forwards otherwise.
// The value reported for today always equals CurrentBalance.
func ProjectMonthBalances(profile *domain.ProfileData, month calendar.Month, today civil.Date) []DayBalance {
	txs := []domain.Transaction(profile.Transactions)
	balance := openingBalance(txs, profile.CurrentBalance, month.First(), today)

	out := make([]DayBalance, 0, month.Days())
	for day := month.First(); !day.After(month.Last()); day = day.AddDays(1) {
		net := recurrence.NetOn(txs, day, recurrence.Realized)
		balance = balance.Add(net)
		out = append(out, DayBalance{
			Date:      day,
			Balance:   balance,
			HasChange: !net.IsZero(),
		})
	}
	return out
}

// BalanceOn returns the end-of-day balance of day.
func BalanceOn(profile *domain.ProfileData, day, today civil.Date) decimal.Decimal {
	txs := []domain.Transaction(profile.Transactions)
	return openingBalance(txs, profile.CurrentBalance, day, today).
		Add(recurrence.NetOn(txs, day, recurrence.Realized))
}

// openingBalance is the balance just before first. Contributions between
// the two dates are summed oldest to newest before being applied so the
// forward walk reproduces current exactly at today.
func openingBalance(txs []domain.Transaction, current decimal.Decimal, first, today civil.Date) decimal.Decimal {
	sum := decimal.Zero
	if !first.After(today) {
		for day := first; !day.After(today); day = day.AddDays(1) {
			sum = sum.Add(recurrence.NetOn(txs, day, recurrence.Realized))
		}
		return current.Sub(sum)
	}
	for day := today.AddDays(1); day.Before(first); day = day.AddDays(1) {
		sum = sum.Add(recurrence.NetOn(txs, day, recurrence.Realized))
	}
	return current.Add(sum)
}
