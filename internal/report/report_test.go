package report

import (
	"bytes"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

var today = civil.Date{Year: 2026, Month: time.September, Day: 20}

func sampleProfile() *domain.ProfileData {
	p := domain.NewProfileData()
	p.CurrentBalance = decimal.NewFromInt(2000)
	p.Transactions = append(p.Transactions,
		domain.NewIncome("Salary", decimal.NewFromInt(3000), civil.Date{Year: 2026, Month: 1, Day: 1}, domain.RecurrenceMonthly),
		domain.NewExpense("Rent", decimal.NewFromInt(1000), civil.Date{Year: 2026, Month: 1, Day: 15}, domain.RecurrenceMonthly),
		domain.NewInstallmentPayment("Sofa", decimal.NewFromInt(200), civil.Date{Year: 2026, Month: 6, Day: 20}, 10),
	)
	p.Goals = []domain.SavingsGoal{{ID: "g", Name: "Trip", TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(250)}}
	return p
}

func raw(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetCellValue %s!%s: %v", sheet, cell, err)
	}
	return v
}

func TestWrite_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "Personal", sampleProfile(), domain.Settings{Currency: "EUR"}, today); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{SheetSummary, SheetBalance, SheetCashflow, SheetDebt, SheetGoals, SheetUpcoming}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v", sheets)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet %d = %s, want %s", i, sheets[i], want[i])
		}
	}

	if got := raw(t, f, SheetSummary, "B3"); got != "EUR" {
		t.Errorf("currency = %q", got)
	}
	// 3000 - 1000 - 200
	if got := raw(t, f, SheetSummary, "B8"); got != "1800" {
		t.Errorf("net monthly savings = %q", got)
	}

	// September has 30 days plus the header row.
	rows, err := f.GetRows(SheetBalance)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 31 {
		t.Errorf("balance rows = %d, want 31", len(rows))
	}
	if got := raw(t, f, SheetBalance, "B21"); got != "2000" {
		t.Errorf("balance on the 20th = %q, want 2000", got)
	}

	if got := raw(t, f, SheetCashflow, "A13"); got != "2026-09" {
		t.Errorf("last cashflow month = %q", got)
	}

	// Started in June with ten installments: three elapsed by September.
	if got := raw(t, f, SheetDebt, "C2"); got != "1400" {
		t.Errorf("first debt row = %q, want 1400", got)
	}

	if got := raw(t, f, SheetGoals, "D2"); got != "25" {
		t.Errorf("goal progress = %q, want 25", got)
	}
	if got := raw(t, f, SheetUpcoming, "B2"); got != "Sofa" {
		t.Errorf("upcoming payment = %q", got)
	}
}
