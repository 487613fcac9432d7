// Package report renders projections into an XLSX workbook.
package report

import (
	"fmt"
	"io"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/finance-dashboard/internal/calendar"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/projection"
)

// Sheet names in workbook order.
const (
	SheetSummary  = "Summary"
	SheetBalance  = "Balance"
	SheetCashflow = "Cashflow"
	SheetDebt     = "Debt"
	SheetGoals    = "Goals"
	SheetUpcoming = "Upcoming"
)

// amountFormat is the built-in "#,##0.00" number format.
const amountFormat = 4

type builder struct {
	f           *excelize.File
	headerStyle int
	amountStyle int
}

// Build renders the workbook for one profile as of today.
func Build(name string, p *domain.ProfileData, settings domain.Settings, today civil.Date) (*excelize.File, error) {
	f := excelize.NewFile()
	b := &builder{f: f}

	var err error
	if b.headerStyle, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}
	if b.amountStyle, err = f.NewStyle(&excelize.Style{NumFmt: amountFormat}); err != nil {
		return nil, fmt.Errorf("report: amount style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	for _, sheet := range []string{SheetBalance, SheetCashflow, SheetDebt, SheetGoals, SheetUpcoming} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("report: new sheet %s: %w", sheet, err)
		}
	}

	txs := []domain.Transaction(p.Transactions)
	settings = settings.WithDefaults()
	month := calendar.MonthOf(today)
	flows := projection.RecurringFlows(txs, today)

	summary := [][]any{
		{"Profile", name},
		{"As of", today.String()},
		{"Currency", settings.Currency},
		{"Current balance", p.CurrentBalance},
		{"Monthly income", flows.Income},
		{"Monthly expenses", flows.Expenses},
		{"Monthly payments", flows.Payments},
		{"Net monthly savings", flows.Net()},
	}
	for i, row := range summary {
		if err := b.writeRow(SheetSummary, i+1, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), b.headerStyle); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	if err := b.header(SheetBalance, "Date", "Balance", "Change"); err != nil {
		return nil, err
	}
	for i, d := range projection.ProjectMonthBalances(p, month, today) {
		if err := b.writeRow(SheetBalance, i+2, []any{d.Date.String(), d.Balance, d.HasChange}); err != nil {
			return nil, err
		}
	}

	if err := b.header(SheetCashflow, "Month", "Label", "Income", "Expenses", "Net"); err != nil {
		return nil, err
	}
	for i, m := range projection.MonthlyTotals(txs, today, projection.DefaultCashflowWindow) {
		if err := b.writeRow(SheetCashflow, i+2, []any{m.Month, m.Label, m.Income, m.Expenses, m.Income.Sub(m.Expenses)}); err != nil {
			return nil, err
		}
	}

	if err := b.header(SheetDebt, "Month", "Label", "Remaining debt"); err != nil {
		return nil, err
	}
	for i, d := range projection.ProjectPayoff(txs, today) {
		if err := b.writeRow(SheetDebt, i+2, []any{d.Month, d.Label, d.RemainingDebt}); err != nil {
			return nil, err
		}
	}

	if err := b.goals(p, txs, today); err != nil {
		return nil, err
	}

	if err := b.header(SheetUpcoming, "Date", "Name", "Amount", "Recurrence", "Status"); err != nil {
		return nil, err
	}
	for i, o := range projection.UpcomingPayments(txs, month) {
		if err := b.writeRow(SheetUpcoming, i+2, []any{o.Date.String(), o.Name, o.Amount, string(o.Recurrence), string(o.Status)}); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write renders the workbook straight to w.
func Write(w io.Writer, name string, p *domain.ProfileData, settings domain.Settings, today civil.Date) error {
	f, err := Build(name, p, settings, today)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

// goals writes the goal table and, below a blank row, the payoff curve.
func (b *builder) goals(p *domain.ProfileData, txs []domain.Transaction, today civil.Date) error {
	if err := b.header(SheetGoals, "Goal", "Target", "Current", "Progress %", "Linked account", "Priority"); err != nil {
		return err
	}

	effective := p.EffectiveGoalAmounts()
	accounts := make(map[string]string, len(p.Accounts))
	for _, a := range p.Accounts {
		accounts[a.ID] = a.Name
	}

	row := 2
	for _, g := range p.Goals {
		current := effective[g.ID]
		progress := domain.GoalProgress(g.TargetAmount, current).Round(1)
		if err := b.writeRow(SheetGoals, row, []any{g.Name, g.TargetAmount, current, progress, accounts[g.LinkedAccountID], g.Priority}); err != nil {
			return err
		}
		row++
	}

	proj := projection.ProjectGoalPayoff(p.Goals, txs, today)
	row++
	if err := b.writeRow(SheetGoals, row, []any{"Reachable", proj.Reachable}); err != nil {
		return err
	}
	row++
	if err := b.writeRow(SheetGoals, row, []any{"Month", "Label", "Cumulative saved"}); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(SheetGoals, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), b.headerStyle); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, pt := range proj.Points {
		row++
		if err := b.writeRow(SheetGoals, row, []any{pt.Month, pt.Label, pt.CumulativeSaved}); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) header(sheet string, titles ...string) error {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	if err := b.writeRow(sheet, 1, values); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(titles), 1)
	if err := b.f.SetCellStyle(sheet, "A1", last, b.headerStyle); err != nil {
		return fmt.Errorf("report: header style %s: %w", sheet, err)
	}
	return nil
}

// writeRow writes values from column A. Decimals are written as numbers
// with the amount format.
func (b *builder) writeRow(sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		if d, ok := v.(decimal.Decimal); ok {
			v = d.InexactFloat64()
			if err := b.f.SetCellStyle(sheet, cell, cell, b.amountStyle); err != nil {
				return fmt.Errorf("report: %w", err)
			}
		}
		if err := b.f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("report: set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
