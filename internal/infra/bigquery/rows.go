package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/projection"
)

// ExportRow records one warehouse export of a profile.
type ExportRow struct {
	ExportID         string     `bigquery:"export_id"`       // REQUIRED
	Profile          string     `bigquery:"profile"`         // REQUIRED
	ExportedAt       time.Time  `bigquery:"exported_at"`     // REQUIRED
	AsOf             civil.Date `bigquery:"as_of"`           // REQUIRED
	CurrentBalance   *big.Rat   `bigquery:"current_balance"` // NUMERIC
	TransactionCount int64      `bigquery:"transaction_count"`
	GoalCount        int64      `bigquery:"goal_count"`
}

// CashflowRow is one month of the cashflow trend.
type CashflowRow struct {
	ExportID   string     `bigquery:"export_id"`
	Profile    string     `bigquery:"profile"`
	Month      string     `bigquery:"month"` // YYYY-MM
	MonthStart civil.Date `bigquery:"month_start"`
	Income     *big.Rat   `bigquery:"income"`
	Expenses   *big.Rat   `bigquery:"expenses"`
	Net        *big.Rat   `bigquery:"net"`
}

// TransactionRow is one transaction as stored in the profile.
type TransactionRow struct {
	ExportID      string `bigquery:"export_id"`
	Profile       string `bigquery:"profile"`
	TransactionID string `bigquery:"transaction_id"`

	Category   string   `bigquery:"category"`
	Recurrence string   `bigquery:"recurrence"`
	Name       string   `bigquery:"name"`
	Amount     *big.Rat `bigquery:"amount"` // NUMERIC, always positive

	AnchorDate civil.Date          `bigquery:"anchor_date"`
	Status     bigquery.NullString `bigquery:"status"` // one-time payments only

	NumberOfPayments bigquery.NullInt64 `bigquery:"number_of_payments"`
	CompletionDate   bigquery.NullDate  `bigquery:"completion_date"`
}

// Rows is everything written by one export.
type Rows struct {
	Export       *ExportRow
	Cashflow     []*CashflowRow
	Transactions []*TransactionRow
}

// BuildRows maps a profile to warehouse rows. NUMERIC columns are exact
// rationals so amounts survive without rounding.
func BuildRows(exportID, profile string, p *domain.ProfileData, today civil.Date, exportedAt time.Time) Rows {
	out := Rows{
		Export: &ExportRow{
			ExportID:         exportID,
			Profile:          profile,
			ExportedAt:       exportedAt.UTC(),
			AsOf:             today,
			CurrentBalance:   toNumeric(p.CurrentBalance),
			TransactionCount: int64(len(p.Transactions)),
			GoalCount:        int64(len(p.Goals)),
		},
	}

	for _, m := range projection.MonthlyTotals(p.Transactions, today, projection.DefaultCashflowWindow) {
		start, _ := civil.ParseDate(m.Month + "-01")
		out.Cashflow = append(out.Cashflow, &CashflowRow{
			ExportID:   exportID,
			Profile:    profile,
			Month:      m.Month,
			MonthStart: start,
			Income:     toNumeric(m.Income),
			Expenses:   toNumeric(m.Expenses),
			Net:        toNumeric(m.Income.Sub(m.Expenses)),
		})
	}

	for _, tx := range p.Transactions {
		e := tx.Base()
		row := &TransactionRow{
			ExportID:      exportID,
			Profile:       profile,
			TransactionID: e.ID,
			Category:      string(tx.Category()),
			Recurrence:    string(e.Recurrence),
			Name:          e.Name,
			Amount:        toNumeric(e.Amount),
			AnchorDate:    e.Date,
		}
		if pay, ok := tx.(*domain.Payment); ok {
			if pay.Status != "" {
				row.Status = bigquery.NullString{StringVal: string(pay.Status), Valid: true}
			}
			if pay.Installment != nil {
				row.NumberOfPayments = bigquery.NullInt64{Int64: int64(pay.Installment.NumberOfPayments), Valid: true}
				row.CompletionDate = bigquery.NullDate{Date: pay.Installment.CompletionDate, Valid: true}
			}
		}
		out.Transactions = append(out.Transactions, row)
	}
	return out
}

func toNumeric(d decimal.Decimal) *big.Rat {
	return d.Rat()
}
