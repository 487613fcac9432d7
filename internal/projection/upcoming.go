package projection

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/recurrence"
	"github.com/shopspring/decimal"
)

// Occurrence is one scheduled payment in the calendar view.
type Occurrence struct {
	Date          civil.Date           `json:"date"`
	TransactionID string               `json:"transactionId"`
	Name          string               `json:"name"`
	Amount        decimal.Decimal      `json:"amount"`
	Recurrence    domain.Recurrence    `json:"recurrence"`
	Status        domain.PaymentStatus `json:"status,omitempty"`
}

// UpcomingPayments lists every payment falling in month m, including
// one-time payments that are still pending, ordered by date then name.
func UpcomingPayments(txs []domain.Transaction, m calendar.Month) []Occurrence {
	out := []Occurrence{}
	for _, tx := range txs {
		p, ok := tx.(*domain.Payment)
		if !ok || !recurrence.Counts(p, recurrence.Upcoming) {
			continue
		}
		date, ok := recurrence.OccurrenceIn(p, m)
		if !ok {
			continue
		}
		out = append(out, Occurrence{
			Date:          date,
			TransactionID: p.ID,
			Name:          p.Name,
			Amount:        p.Amount,
			Recurrence:    p.Recurrence,
			Status:        p.Status,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
