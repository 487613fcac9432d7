package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// ValidateTransaction checks the invariants every transaction kind must hold
// when it is created or edited.
func ValidateTransaction(tx Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction is nil", ErrInvalid)
	}
	e := tx.Base()
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalid, e.Amount)
	}
	if e.Date == (civil.Date{}) || !e.Date.IsValid() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	if err := validateRecurrence(e.Recurrence); err != nil {
		return err
	}

	switch t := tx.(type) {
	case *Income, *Expense:
		return nil
	case *Payment:
		return validatePayment(t)
	default:
		return fmt.Errorf("%w: unknown transaction type %T", ErrInvalid, tx)
	}
}

func validatePayment(p *Payment) error {
	switch p.Status {
	case "", StatusPending, StatusPaid:
	default:
		return fmt.Errorf("%w: unknown payment status %q", ErrInvalid, p.Status)
	}
	if p.Recurrence != RecurrenceMonthly {
		return nil
	}
	if p.Installment == nil {
		return fmt.Errorf("%w: monthly payment %q needs installment details", ErrInvalid, p.Name)
	}
	if p.Installment.NumberOfPayments <= 0 {
		return fmt.Errorf("%w: number of payments must be positive, got %d", ErrInvalid, p.Installment.NumberOfPayments)
	}
	return nil
}

func validateRecurrence(r Recurrence) error {
	switch r {
	case RecurrenceOnce, RecurrenceMonthly, RecurrenceYearly:
		return nil
	default:
		return fmt.Errorf("%w: unknown recurrence %q", ErrInvalid, r)
	}
}

// ValidateGoal checks a goal in isolation.
func ValidateGoal(g SavingsGoal) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: goal name is required", ErrInvalid)
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: goal target must be positive", ErrInvalid)
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: goal current amount must not be negative", ErrInvalid)
	}
	return nil
}

// ValidateAccount checks a savings account in isolation.
func ValidateAccount(a SavingsAccount) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalid)
	}
	if a.Amount.IsNegative() {
		return fmt.Errorf("%w: account amount must not be negative", ErrInvalid)
	}
	return nil
}

// ValidateInterestEntry checks one interest history entry.
func ValidateInterestEntry(e InterestEntry) error {
	if e.Rate.IsNegative() {
		return fmt.Errorf("%w: interest rate must not be negative", ErrInvalid)
	}
	if err := validateRecurrence(e.Recurrence); err != nil {
		return err
	}
	if e.PayoutDay < 0 || e.PayoutDay > 31 {
		return fmt.Errorf("%w: payout day must be between 1 and 31", ErrInvalid)
	}
	return nil
}
