package domain

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the transaction kind as persisted in the "category" field.
type Category string

const (
	CategoryIncome  Category = "income"
	CategoryExpense Category = "expense"
	CategoryPayment Category = "payment"
)

// Recurrence is how often a transaction repeats.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// PaymentStatus tracks whether a one-time payment has been settled.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
)

// Entry holds the fields every transaction kind shares.
type Entry struct {
	ID         string
	Name       string
	Amount     decimal.Decimal // always positive; the kind decides the sign
	Date       civil.Date      // anchor date
	Recurrence Recurrence
}

// Base gives access to the shared fields of any transaction.
func (e *Entry) Base() *Entry { return e }

func (*Entry) sealed() {}

// Transaction is one of *Income, *Expense or *Payment.
// Consumers switch on the concrete type; no other implementations exist.
type Transaction interface {
	Base() *Entry
	Category() Category
	sealed()
}

// Income is money coming in.
type Income struct {
	Entry
}

func (*Income) Category() Category { return CategoryIncome }

// Expense is money going out for consumption.
type Expense struct {
	Entry
}

func (*Expense) Category() Category { return CategoryExpense }

// Payment is a scheduled obligation: a one-time bill with a settlement
// status, or a monthly installment plan.
type Payment struct {
	Entry
	Status      PaymentStatus // meaningful for one-time payments
	Installment *Installment  // required when Recurrence is monthly
}

func (*Payment) Category() Category { return CategoryPayment }

// Installment describes a fixed number of monthly payments.
type Installment struct {
	NumberOfPayments int
	CompletionDate   civil.Date
}

// NewIncome creates an income entry with a fresh ID.
func NewIncome(name string, amount decimal.Decimal, date civil.Date, rec Recurrence) *Income {
	return &Income{Entry: newEntry(name, amount, date, rec)}
}

// NewExpense creates an expense entry with a fresh ID.
func NewExpense(name string, amount decimal.Decimal, date civil.Date, rec Recurrence) *Expense {
	return &Expense{Entry: newEntry(name, amount, date, rec)}
}

// NewOneTimePayment creates a pending one-time payment due on date.
func NewOneTimePayment(name string, amount decimal.Decimal, date civil.Date) *Payment {
	return &Payment{
		Entry:  newEntry(name, amount, date, RecurrenceOnce),
		Status: StatusPending,
	}
}

// NewInstallmentPayment creates a monthly installment plan starting on date.
// The completion date is fixed here and only changes when the payment is edited.
func NewInstallmentPayment(name string, amount decimal.Decimal, date civil.Date, numberOfPayments int) *Payment {
	p := &Payment{
		Entry:       newEntry(name, amount, date, RecurrenceMonthly),
		Installment: &Installment{NumberOfPayments: numberOfPayments},
	}
	p.schedule()
	return p
}

// schedule derives the installment completion date from the anchor date.
func (p *Payment) schedule() {
	if p.Recurrence != RecurrenceMonthly || p.Installment == nil {
		return
	}
	p.Installment.CompletionDate = calendar.AddMonths(p.Date, p.Installment.NumberOfPayments)
}

// IsSettled reports whether a one-time payment has been paid.
func (p *Payment) IsSettled() bool {
	return p.Status == StatusPaid
}

func newEntry(name string, amount decimal.Decimal, date civil.Date, rec Recurrence) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Name:       name,
		Amount:     amount,
		Date:       date,
		Recurrence: rec,
	}
}

// Signed returns the amount with the sign the transaction kind applies to a balance.
func Signed(tx Transaction) decimal.Decimal {
	switch t := tx.(type) {
	case *Income:
		return t.Amount
	case *Expense:
		return t.Amount.Neg()
	case *Payment:
		return t.Amount.Neg()
	default:
		panic("domain: unknown transaction type")
	}
}
