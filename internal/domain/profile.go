package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an entity ID does not exist in the profile.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid")
)

// ProfileData is the aggregate root of one named profile. It owns all of
// its transactions, goals and accounts.
type ProfileData struct {
	Transactions   Transactions     `json:"transactions"`
	CurrentBalance decimal.Decimal  `json:"currentBalance"` // snapshot as of today
	Goals          []SavingsGoal    `json:"goals"`
	Accounts       []SavingsAccount `json:"accounts"`

	skipped []error // transactions dropped while decoding
}

// NewProfileData returns an empty profile.
func NewProfileData() *ProfileData {
	return &ProfileData{
		Transactions: Transactions{},
		Goals:        []SavingsGoal{},
		Accounts:     []SavingsAccount{},
	}
}

// Skipped returns why transactions were dropped by the last decode. The
// list is cleared by Normalize.
func (p *ProfileData) Skipped() []error {
	return p.skipped
}

// SetCurrentBalance replaces the balance snapshot.
func (p *ProfileData) SetCurrentBalance(amount decimal.Decimal) {
	p.CurrentBalance = amount
}

// Transaction returns the transaction with the given ID.
func (p *ProfileData) Transaction(id string) (Transaction, error) {
	i := p.transactionIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return p.Transactions[i], nil
}

// AddTransaction validates tx, assigns an ID when missing and appends it.
func (p *ProfileData) AddTransaction(tx Transaction) error {
	if err := ValidateTransaction(tx); err != nil {
		return err
	}
	if tx.Base().ID == "" {
		tx.Base().ID = uuid.NewString()
	}
	if p.transactionIndex(tx.Base().ID) >= 0 {
		return fmt.Errorf("%w: duplicate transaction id %s", ErrInvalid, tx.Base().ID)
	}
	if pay, ok := tx.(*Payment); ok {
		pay.schedule()
	}
	p.Transactions = append(p.Transactions, tx)
	return nil
}

// UpdateTransaction replaces the transaction that has tx's ID. The kind may
// change; installment completion dates are recomputed.
func (p *ProfileData) UpdateTransaction(tx Transaction) error {
	i := p.transactionIndex(tx.Base().ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", tx.Base().ID, ErrNotFound)
	}
	if err := ValidateTransaction(tx); err != nil {
		return err
	}
	if pay, ok := tx.(*Payment); ok {
		pay.schedule()
	}
	p.Transactions[i] = tx
	return nil
}

// DeleteTransaction removes the transaction with the given ID.
func (p *ProfileData) DeleteTransaction(id string) error {
	i := p.transactionIndex(id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	p.Transactions = append(p.Transactions[:i], p.Transactions[i+1:]...)
	return nil
}

// MarkPaymentPaid settles a one-time payment.
func (p *ProfileData) MarkPaymentPaid(id string) error {
	tx, err := p.Transaction(id)
	if err != nil {
		return err
	}
	pay, ok := tx.(*Payment)
	if !ok || pay.Recurrence != RecurrenceOnce {
		return fmt.Errorf("%w: transaction %s is not a one-time payment", ErrInvalid, id)
	}
	pay.Status = StatusPaid
	return nil
}

func (p *ProfileData) transactionIndex(id string) int {
	for i, tx := range p.Transactions {
		if tx.Base().ID == id {
			return i
		}
	}
	return -1
}

// AddGoal appends a goal behind every goal sharing its account (or behind
// every unlinked goal).
func (p *ProfileData) AddGoal(g SavingsGoal) (SavingsGoal, error) {
	if err := p.validateGoal(g); err != nil {
		return SavingsGoal{}, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.Priority = p.nextPriority(g.LinkedAccountID)
	p.Goals = append(p.Goals, g)
	return g, nil
}

// UpdateGoal replaces a goal. Moving it to another account puts it last there.
func (p *ProfileData) UpdateGoal(g SavingsGoal) error {
	i := p.goalIndex(g.ID)
	if i < 0 {
		return fmt.Errorf("goal %s: %w", g.ID, ErrNotFound)
	}
	if err := p.validateGoal(g); err != nil {
		return err
	}
	old := p.Goals[i]
	g.CreatedAt = old.CreatedAt
	if g.LinkedAccountID != old.LinkedAccountID {
		g.Priority = p.nextPriority(g.LinkedAccountID)
	} else {
		g.Priority = old.Priority
	}
	p.Goals[i] = g
	return nil
}

// DeleteGoal removes the goal with the given ID.
func (p *ProfileData) DeleteGoal(id string) error {
	i := p.goalIndex(id)
	if i < 0 {
		return fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	p.Goals = append(p.Goals[:i], p.Goals[i+1:]...)
	return nil
}

// ReorderGoals sets the priority order of the goals linked to accountID
// (empty for unlinked goals). ids must list exactly those goals.
func (p *ProfileData) ReorderGoals(accountID string, ids []string) error {
	members := make(map[string]int)
	for i, g := range p.Goals {
		if g.LinkedAccountID == accountID {
			members[g.ID] = i
		}
	}
	if len(ids) != len(members) {
		return fmt.Errorf("%w: expected %d goal ids, got %d", ErrInvalid, len(members), len(ids))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := members[id]; !ok || seen[id] {
			return fmt.Errorf("%w: goal %s is not linked to account %q", ErrInvalid, id, accountID)
		}
		seen[id] = true
	}
	for priority, id := range ids {
		p.Goals[members[id]].Priority = priority
	}
	return nil
}

func (p *ProfileData) nextPriority(accountID string) int {
	next := 0
	for _, g := range p.Goals {
		if g.LinkedAccountID == accountID && g.Priority >= next {
			next = g.Priority + 1
		}
	}
	return next
}

func (p *ProfileData) goalIndex(id string) int {
	for i, g := range p.Goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (p *ProfileData) validateGoal(g SavingsGoal) error {
	if err := ValidateGoal(g); err != nil {
		return err
	}
	if g.IsLinked() && p.accountIndex(g.LinkedAccountID) < 0 {
		return fmt.Errorf("%w: linked account %s does not exist", ErrInvalid, g.LinkedAccountID)
	}
	return nil
}

// AddAccount appends a savings account.
func (p *ProfileData) AddAccount(a SavingsAccount) (SavingsAccount, error) {
	if err := ValidateAccount(a); err != nil {
		return SavingsAccount{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.InterestHistory == nil {
		a.InterestHistory = []InterestEntry{}
	}
	p.Accounts = append(p.Accounts, a)
	return a, nil
}

// UpdateAccount replaces name and amount of an account, keeping its interest history.
func (p *ProfileData) UpdateAccount(a SavingsAccount) error {
	i := p.accountIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", a.ID, ErrNotFound)
	}
	if err := ValidateAccount(a); err != nil {
		return err
	}
	p.Accounts[i].Name = a.Name
	p.Accounts[i].Amount = a.Amount
	return nil
}

// DeleteAccount removes an account and unlinks every goal that pointed at it.
func (p *ProfileData) DeleteAccount(id string) error {
	i := p.accountIndex(id)
	if i < 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	p.Accounts = append(p.Accounts[:i], p.Accounts[i+1:]...)
	p.unlinkGoals(id)
	return nil
}

// AddInterestEntry appends to an account's interest history.
func (p *ProfileData) AddInterestEntry(accountID string, e InterestEntry) error {
	i := p.accountIndex(accountID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	if err := ValidateInterestEntry(e); err != nil {
		return err
	}
	p.Accounts[i].InterestHistory = append(p.Accounts[i].InterestHistory, e)
	return nil
}

func (p *ProfileData) unlinkGoals(accountID string) {
	for i := range p.Goals {
		if p.Goals[i].LinkedAccountID != accountID {
			continue
		}
		p.Goals[i].LinkedAccountID = ""
		p.Goals[i].Priority = p.nextPriority("")
	}
}

func (p *ProfileData) accountIndex(id string) int {
	for i, a := range p.Accounts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// EffectiveGoalAmounts is the profile-level shortcut for the package function.
func (p *ProfileData) EffectiveGoalAmounts() map[string]decimal.Decimal {
	return EffectiveGoalAmounts(p.Goals, p.Accounts)
}
