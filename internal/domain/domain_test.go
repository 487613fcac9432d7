package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func d(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestEffectiveGoalAmounts_PriorityFill(t *testing.T) {
	p := NewProfileData()
	acc, err := p.AddAccount(SavingsAccount{Name: "Savings", Amount: amt(1000)})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	a, _ := p.AddGoal(SavingsGoal{Name: "A", TargetAmount: amt(600), LinkedAccountID: acc.ID})
	b, _ := p.AddGoal(SavingsGoal{Name: "B", TargetAmount: amt(600), LinkedAccountID: acc.ID})
	u, _ := p.AddGoal(SavingsGoal{Name: "Unlinked", TargetAmount: amt(100), CurrentAmount: amt(40)})

	if a.Priority != 0 || b.Priority != 1 {
		t.Fatalf("priorities = %d, %d; want 0, 1", a.Priority, b.Priority)
	}

	got := p.EffectiveGoalAmounts()
	if !got[a.ID].Equal(amt(600)) {
		t.Errorf("A effective = %s, want 600", got[a.ID])
	}
	if !got[b.ID].Equal(amt(400)) {
		t.Errorf("B effective = %s, want 400", got[b.ID])
	}
	if !got[u.ID].Equal(amt(40)) {
		t.Errorf("unlinked effective = %s, want 40", got[u.ID])
	}

	if err := p.ReorderGoals(acc.ID, []string{b.ID, a.ID}); err != nil {
		t.Fatalf("ReorderGoals: %v", err)
	}
	got = p.EffectiveGoalAmounts()
	if !got[b.ID].Equal(amt(600)) || !got[a.ID].Equal(amt(400)) {
		t.Errorf("after reorder A=%s B=%s, want 400/600", got[a.ID], got[b.ID])
	}
}

func TestEffectiveGoalAmounts_NeverExceedsAccount(t *testing.T) {
	accounts := []SavingsAccount{{ID: "acc", Name: "Pot", Amount: amt(250)}}
	goals := []SavingsGoal{
		{ID: "g1", Name: "one", TargetAmount: amt(100), LinkedAccountID: "acc", Priority: 2},
		{ID: "g2", Name: "two", TargetAmount: amt(100), LinkedAccountID: "acc", Priority: 0},
		{ID: "g3", Name: "three", TargetAmount: amt(100), LinkedAccountID: "acc", Priority: 1},
		{ID: "g4", Name: "dangling", TargetAmount: amt(100), LinkedAccountID: "gone"},
	}

	got := EffectiveGoalAmounts(goals, accounts)

	sum := got["g1"].Add(got["g2"]).Add(got["g3"])
	if sum.GreaterThan(amt(250)) {
		t.Errorf("linked sum %s exceeds account amount", sum)
	}
	if !got["g1"].Equal(amt(50)) {
		t.Errorf("lowest priority goal = %s, want 50", got["g1"])
	}
	if !got["g4"].IsZero() {
		t.Errorf("goal with missing account = %s, want 0", got["g4"])
	}
}

func TestDeleteAccount_UnlinksGoals(t *testing.T) {
	p := NewProfileData()
	acc, _ := p.AddAccount(SavingsAccount{Name: "Pot", Amount: amt(500)})
	g, _ := p.AddGoal(SavingsGoal{Name: "Trip", TargetAmount: amt(300), LinkedAccountID: acc.ID})

	if err := p.DeleteAccount(acc.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if len(p.Accounts) != 0 {
		t.Fatalf("accounts left: %d", len(p.Accounts))
	}
	if p.Goals[0].LinkedAccountID != "" {
		t.Errorf("goal %s still linked to %q", g.ID, p.Goals[0].LinkedAccountID)
	}
	if err := p.DeleteAccount(acc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestNewInstallmentPayment_CompletionDate(t *testing.T) {
	p := NewInstallmentPayment("Laptop", amt(200), d(2026, 1, 31), 10)

	if p.Installment.CompletionDate != d(2026, 11, 30) {
		t.Errorf("completion = %s, want 2026-11-30", p.Installment.CompletionDate)
	}

	profile := NewProfileData()
	if err := profile.AddTransaction(p); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	edited := *p
	edited.Installment = &Installment{NumberOfPayments: 2}
	if err := profile.UpdateTransaction(&edited); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	tx, _ := profile.Transaction(p.ID)
	if got := tx.(*Payment).Installment.CompletionDate; got != d(2026, 3, 31) {
		t.Errorf("completion after edit = %s, want 2026-03-31", got)
	}
}

func TestValidateTransaction(t *testing.T) {
	tests := []struct {
		name    string
		tx      Transaction
		wantErr bool
	}{
		{"valid income", NewIncome("Salary", amt(3000), d(2026, 1, 1), RecurrenceMonthly), false},
		{"zero amount", NewExpense("Rent", decimal.Zero, d(2026, 1, 1), RecurrenceMonthly), true},
		{"negative amount", NewExpense("Rent", amt(-5), d(2026, 1, 1), RecurrenceMonthly), true},
		{"missing name", NewIncome(" ", amt(5), d(2026, 1, 1), RecurrenceOnce), true},
		{"missing date", NewIncome("Gift", amt(5), civil.Date{}, RecurrenceOnce), true},
		{"bad recurrence", NewIncome("Gift", amt(5), d(2026, 1, 1), "weekly"), true},
		{"monthly payment without installment", &Payment{Entry: Entry{Name: "Car", Amount: amt(5), Date: d(2026, 1, 1), Recurrence: RecurrenceMonthly}}, true},
		{"installment payment", NewInstallmentPayment("Car", amt(5), d(2026, 1, 1), 12), false},
		{"one-time payment", NewOneTimePayment("Tax", amt(500), d(2026, 4, 30)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransaction(tt.tx)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestMarkPaymentPaid(t *testing.T) {
	p := NewProfileData()
	bill := NewOneTimePayment("Insurance", amt(120), d(2026, 10, 5))
	salary := NewIncome("Salary", amt(3000), d(2026, 1, 1), RecurrenceMonthly)
	_ = p.AddTransaction(bill)
	_ = p.AddTransaction(salary)

	if err := p.MarkPaymentPaid(bill.ID); err != nil {
		t.Fatalf("MarkPaymentPaid: %v", err)
	}
	if !bill.IsSettled() {
		t.Error("payment not settled")
	}
	if err := p.MarkPaymentPaid(salary.ID); !errors.Is(err, ErrInvalid) {
		t.Errorf("marking income paid: err = %v, want ErrInvalid", err)
	}
}

func TestProfileData_JSONRoundTrip(t *testing.T) {
	p := NewProfileData()
	p.CurrentBalance = decimal.RequireFromString("1234.56")
	_ = p.AddTransaction(NewIncome("Salary", amt(3000), d(2026, 1, 1), RecurrenceMonthly))
	_ = p.AddTransaction(NewInstallmentPayment("Phone", amt(50), d(2026, 2, 10), 24))
	_ = p.AddTransaction(NewOneTimePayment("Tax", amt(500), d(2026, 4, 30)))
	acc, _ := p.AddAccount(SavingsAccount{Name: "Pot", Amount: amt(900)})
	_ = p.AddInterestEntry(acc.ID, InterestEntry{Rate: decimal.RequireFromString("3.5"), Date: d(2026, 1, 1), Recurrence: RecurrenceMonthly, PayoutDay: 1})

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"category":"payment"`) || !strings.Contains(string(data), `"completionDate":"2028-02-10"`) {
		t.Errorf("unexpected encoding: %s", data)
	}

	var back ProfileData
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(back.Transactions) != 3 {
		t.Fatalf("transactions = %d, want 3", len(back.Transactions))
	}
	if _, ok := back.Transactions[1].(*Payment); !ok {
		t.Errorf("second transaction decoded as %T", back.Transactions[1])
	}
	if !back.CurrentBalance.Equal(p.CurrentBalance) {
		t.Errorf("balance = %s", back.CurrentBalance)
	}
	if got := back.Accounts[0].InterestHistory[0].Date; got != d(2026, 1, 1) {
		t.Errorf("interest date = %s", got)
	}
}

func TestUnmarshalTransaction_Lenient(t *testing.T) {
	tx, err := UnmarshalTransaction([]byte(`{"category":"expense","name":"Coffee","amount":"3.20","date":"2026-03-04T10:00:00.000Z"}`))
	if err != nil {
		t.Fatalf("UnmarshalTransaction: %v", err)
	}
	if tx.Base().Recurrence != RecurrenceOnce {
		t.Errorf("recurrence = %q, want once", tx.Base().Recurrence)
	}
	if tx.Base().Date != d(2026, 3, 4) {
		t.Errorf("date = %s", tx.Base().Date)
	}

	if _, err := UnmarshalTransaction([]byte(`{"category":"transfer","name":"x","amount":1,"date":"2026-01-01"}`)); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown category err = %v, want ErrInvalid", err)
	}
}

func TestProfileData_UnmarshalSkipsBadTransactions(t *testing.T) {
	raw := `{"transactions":[
		{"id":"a","category":"income","name":"Pay","amount":10,"date":"2026-01-01"},
		{"id":"b","category":"transfer","name":"Move","amount":5,"date":"2026-01-01"},
		{"id":"c","category":"expense","name":"Food","amount":5,"date":"yesterday"}
	]}`
	var p ProfileData
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(p.Transactions) != 1 || p.Transactions[0].Base().ID != "a" {
		t.Fatalf("transactions = %+v", p.Transactions)
	}
	skipped := p.Skipped()
	if len(skipped) != 2 || !errors.Is(skipped[0], ErrInvalid) {
		t.Errorf("skipped = %v", skipped)
	}
	// two skipped plus the nil goals and accounts
	if fixed := p.Normalize(); fixed != 4 {
		t.Errorf("Normalize fixed %d, want 4", fixed)
	}
	if len(p.Skipped()) != 0 || p.Normalize() != 0 {
		t.Error("skipped transactions should be counted once")
	}
}

func TestNormalize(t *testing.T) {
	raw := `{
		"transactions": [
			{"category":"payment","recurrence":"once","name":"Bill","amount":10,"date":"2026-01-05"},
			{"id":"inst","category":"payment","recurrence":"monthly","name":"Car","amount":100,"date":"2026-01-31","installmentDetails":{"numberOfPayments":1}}
		],
		"currentBalance": 5,
		"goals": [{"id":"g","name":"Trip","targetAmount":100,"currentAmount":0,"linkedAccountId":"missing"}]
	}`
	var p ProfileData
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if fixed := p.Normalize(); fixed == 0 {
		t.Fatal("expected Normalize to fix fields")
	}

	bill := p.Transactions[0].(*Payment)
	if bill.ID == "" || bill.Status != StatusPending {
		t.Errorf("bill = %+v", bill)
	}
	car := p.Transactions[1].(*Payment)
	if car.Installment.CompletionDate != d(2026, 2, 28) {
		t.Errorf("car completion = %s", car.Installment.CompletionDate)
	}
	if p.Accounts == nil {
		t.Error("accounts should default to empty")
	}
	if p.Goals[0].IsLinked() {
		t.Error("dangling goal link should be cleared")
	}
	if p.Normalize() != 0 {
		t.Error("second Normalize should be a no-op")
	}
}

func TestGoalProgress(t *testing.T) {
	if got := GoalProgress(decimal.Zero, amt(10)); !got.Equal(amt(100)) {
		t.Errorf("zero target progress = %s", got)
	}
	if got := GoalProgress(amt(200), amt(50)); !got.Equal(amt(25)) {
		t.Errorf("progress = %s, want 25", got)
	}
	if got := GoalProgress(amt(200), amt(500)); !got.Equal(amt(100)) {
		t.Errorf("overfilled progress = %s, want 100", got)
	}
}

func TestSettings_FormatAmount(t *testing.T) {
	tests := []struct {
		settings Settings
		in       string
		want     string
	}{
		{Settings{Currency: "USD"}, "1234.5", "$1,234.50"},
		{Settings{Currency: "eur"}, "-12", "-€12.00"},
		{Settings{Currency: "CHF"}, "1000000", "1,000,000.00 CHF"},
		{Settings{}, "0.499", "$0.50"},
	}

	for _, tt := range tests {
		if got := tt.settings.FormatAmount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatAmount(%s, %q) = %q, want %q", tt.in, tt.settings.Currency, got, tt.want)
		}
	}
}
