package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func init() {
	// Profiles are exchanged with tools that expect plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transactions is the persisted list of transactions. It encodes each
// variant with its "category" tag; ProfileData decodes it.
type Transactions []Transaction

type transactionJSON struct {
	ID                 string           `json:"id"`
	Category           Category         `json:"category"`
	Recurrence         Recurrence       `json:"recurrence"`
	Name               string           `json:"name"`
	Amount             decimal.Decimal  `json:"amount"`
	Date               jsonDate         `json:"date"`
	Status             PaymentStatus    `json:"status,omitempty"`
	InstallmentDetails *installmentJSON `json:"installmentDetails,omitempty"`
}

type installmentJSON struct {
	NumberOfPayments int      `json:"numberOfPayments"`
	CompletionDate   jsonDate `json:"completionDate"`
}

// MarshalJSON implements json.Marshaler.
func (ts Transactions) MarshalJSON() ([]byte, error) {
	out := make([]transactionJSON, 0, len(ts))
	for _, tx := range ts {
		out = append(out, encodeTransaction(tx))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. A transaction with an unknown
// category or an unreadable field is dropped and recorded in Skipped
// instead of failing the whole profile.
func (p *ProfileData) UnmarshalJSON(data []byte) error {
	type plain ProfileData
	var raw struct {
		plain
		Transactions []json.RawMessage `json:"transactions"`
	}
	raw.plain = plain(*p)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = ProfileData(raw.plain)
	p.skipped = nil
	if raw.Transactions == nil {
		return nil
	}
	p.Transactions = make(Transactions, 0, len(raw.Transactions))
	for i, msg := range raw.Transactions {
		tx, err := UnmarshalTransaction(msg)
		if err != nil {
			p.skipped = append(p.skipped, fmt.Errorf("transaction %d: %w", i, err))
			continue
		}
		p.Transactions = append(p.Transactions, tx)
	}
	return nil
}

// MarshalTransaction encodes a single transaction in the persisted shape.
func MarshalTransaction(tx Transaction) ([]byte, error) {
	return json.Marshal(encodeTransaction(tx))
}

// UnmarshalTransaction decodes a single transaction from the persisted shape.
func UnmarshalTransaction(data []byte) (Transaction, error) {
	var r transactionJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return decodeTransaction(r)
}

func encodeTransaction(tx Transaction) transactionJSON {
	e := tx.Base()
	out := transactionJSON{
		ID:         e.ID,
		Category:   tx.Category(),
		Recurrence: e.Recurrence,
		Name:       e.Name,
		Amount:     e.Amount,
		Date:       jsonDate(e.Date),
	}
	if p, ok := tx.(*Payment); ok {
		out.Status = p.Status
		if p.Installment != nil {
			out.InstallmentDetails = &installmentJSON{
				NumberOfPayments: p.Installment.NumberOfPayments,
				CompletionDate:   jsonDate(p.Installment.CompletionDate),
			}
		}
	}
	return out
}

func decodeTransaction(r transactionJSON) (Transaction, error) {
	rec := r.Recurrence
	if rec == "" {
		rec = RecurrenceOnce
	}
	entry := Entry{
		ID:         r.ID,
		Name:       r.Name,
		Amount:     r.Amount,
		Date:       civil.Date(r.Date),
		Recurrence: rec,
	}

	switch Category(strings.ToLower(string(r.Category))) {
	case CategoryIncome:
		return &Income{Entry: entry}, nil
	case CategoryExpense:
		return &Expense{Entry: entry}, nil
	case CategoryPayment:
		p := &Payment{Entry: entry, Status: r.Status}
		if r.InstallmentDetails != nil {
			p.Installment = &Installment{
				NumberOfPayments: r.InstallmentDetails.NumberOfPayments,
				CompletionDate:   civil.Date(r.InstallmentDetails.CompletionDate),
			}
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown transaction category %q", ErrInvalid, r.Category)
	}
}

// jsonDate encodes as "YYYY-MM-DD" and decodes either that or an RFC 3339
// timestamp, keeping only the calendar date. Empty and null decode to the zero date.
type jsonDate civil.Date

func (d jsonDate) MarshalJSON() ([]byte, error) {
	if civil.Date(d) == (civil.Date{}) {
		return []byte(`""`), nil
	}
	return json.Marshal(civil.Date(d).String())
}

func (d *jsonDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = jsonDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = jsonDate(parsed)
	return nil
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return civil.DateOf(t), nil
}

type interestEntryJSON struct {
	Rate       decimal.Decimal `json:"rate"`
	Date       jsonDate        `json:"date"`
	Recurrence Recurrence      `json:"recurrence"`
	PayoutDay  int             `json:"payoutDay"`
}

// MarshalJSON implements json.Marshaler.
func (e InterestEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(interestEntryJSON{
		Rate:       e.Rate,
		Date:       jsonDate(e.Date),
		Recurrence: e.Recurrence,
		PayoutDay:  e.PayoutDay,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *InterestEntry) UnmarshalJSON(data []byte) error {
	var r interestEntryJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = InterestEntry{
		Rate:       r.Rate,
		Date:       civil.Date(r.Date),
		Recurrence: r.Recurrence,
		PayoutDay:  r.PayoutDay,
	}
	return nil
}
