package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
)

// renderTable lays out rows under headers. Cells starting with "-" are
// highlighted as negative amounts.
func renderTable(headers []string, rows [][]string) string {
	styled := make([][]string, len(rows))
	for i, row := range rows {
		styled[i] = make([]string, len(row))
		for j, cell := range row {
			if strings.HasPrefix(cell, "-") {
				cell = negativeStyle.Render(cell)
			}
			styled[i][j] = cell
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(styled...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func title(s string) string {
	return titleStyle.Render(s)
}

func muted(s string) string {
	return mutedStyle.Render(s)
}

type amountFormatter struct {
	settings domain.Settings
}

func (f amountFormatter) format(d decimal.Decimal) string {
	return f.settings.FormatAmount(d)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
