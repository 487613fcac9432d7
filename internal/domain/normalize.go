package domain

import (
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/google/uuid"
)

// Normalize repairs a profile read from storage or an import instead of
// rejecting it. It returns the number of fields it had to fix.
//
//   - transactions dropped while decoding are counted once
//   - nil collections become empty
//   - missing IDs are generated
//   - one-time payments without a status are pending
//   - installment completion dates are derived when only the count is known
//   - goals pointing at a missing account are unlinked
func (p *ProfileData) Normalize() int {
	fixed := len(p.skipped)
	p.skipped = nil

	if p.Transactions == nil {
		p.Transactions = Transactions{}
		fixed++
	}
	if p.Goals == nil {
		p.Goals = []SavingsGoal{}
		fixed++
	}
	if p.Accounts == nil {
		p.Accounts = []SavingsAccount{}
		fixed++
	}

	for _, tx := range p.Transactions {
		e := tx.Base()
		if e.ID == "" {
			e.ID = uuid.NewString()
			fixed++
		}
		pay, ok := tx.(*Payment)
		if !ok {
			continue
		}
		if pay.Recurrence == RecurrenceOnce && pay.Status == "" {
			pay.Status = StatusPending
			fixed++
		}
		if pay.Installment != nil && pay.Installment.NumberOfPayments > 0 &&
			pay.Installment.CompletionDate == (civil.Date{}) {
			pay.Installment.CompletionDate = calendar.AddMonths(pay.Date, pay.Installment.NumberOfPayments)
			fixed++
		}
	}

	accounts := make(map[string]bool, len(p.Accounts))
	for i := range p.Accounts {
		if p.Accounts[i].ID == "" {
			p.Accounts[i].ID = uuid.NewString()
			fixed++
		}
		if p.Accounts[i].InterestHistory == nil {
			p.Accounts[i].InterestHistory = []InterestEntry{}
			fixed++
		}
		accounts[p.Accounts[i].ID] = true
	}

	for i := range p.Goals {
		if p.Goals[i].ID == "" {
			p.Goals[i].ID = uuid.NewString()
			fixed++
		}
	}
	for i := range p.Goals {
		if p.Goals[i].IsLinked() && !accounts[p.Goals[i].LinkedAccountID] {
			p.unlinkGoals(p.Goals[i].LinkedAccountID)
			fixed++
		}
	}

	return fixed
}
