package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// SavingsAccount is a pot of money goals can be linked to.
type SavingsAccount struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	InterestHistory []InterestEntry `json:"interestHistory"`
}

// InterestEntry records an interest rate that applied from Date on.
// Entries are kept for reference only; nothing compounds them.
type InterestEntry struct {
	Rate       decimal.Decimal `json:"rate"` // annual percentage
	Date       civil.Date      `json:"date"`
	Recurrence Recurrence      `json:"recurrence"`
	PayoutDay  int             `json:"payoutDay"`
}

// CurrentRate returns the most recent interest rate on or before asOf.
func (a SavingsAccount) CurrentRate(asOf civil.Date) (decimal.Decimal, bool) {
	var (
		best  InterestEntry
		found bool
	)
	for _, e := range a.InterestHistory {
		if e.Date.After(asOf) {
			continue
		}
		if !found || e.Date.After(best.Date) {
			best, found = e, true
		}
	}
	return best.Rate, found
}
