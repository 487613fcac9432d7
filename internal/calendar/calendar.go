// Package calendar provides the month and day arithmetic shared by the
// recurrence evaluator and the projections.
//
// Every anchor day that does not exist in a target month (day 31 in April,
// day 29 in a non-leap February) is clamped to that month's last day.
package calendar

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d civil.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("ParseMonth: %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String renders the month as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label renders the month for charts, e.g. "Oct 2026".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Month.String()[:3], m.Year)
}

// AddMonths returns the month n months after m (n may be negative).
func (m Month) AddMonths(n int) Month {
	idx := m.index() + n
	return Month{Year: floorDiv(idx, 12), Month: time.Month(floorMod(idx, 12) + 1)}
}

// MonthsSince returns the number of whole months from other to m.
func (m Month) MonthsSince(other Month) int {
	return m.index() - other.index()
}

func (m Month) Before(other Month) bool { return m.index() < other.index() }
func (m Month) After(other Month) bool  { return m.index() > other.index() }

// Days is the number of days in the month.
func (m Month) Days() int {
	return DaysIn(m.Year, m.Month)
}

// First is the first day of the month.
func (m Month) First() civil.Date {
	return civil.Date{Year: m.Year, Month: m.Month, Day: 1}
}

// Last is the last day of the month.
func (m Month) Last() civil.Date {
	return civil.Date{Year: m.Year, Month: m.Month, Day: m.Days()}
}

// Contains reports whether d falls within the month.
func (m Month) Contains(d civil.Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// Day returns the given day of the month, clamped to the month's length.
func (m Month) Day(day int) civil.Date {
	return civil.Date{Year: m.Year, Month: m.Month, Day: ClampDay(day, m.Year, m.Month)}
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay limits day to the last day of the given month.
func ClampDay(day, year int, month time.Month) int {
	if n := DaysIn(year, month); day > n {
		return n
	}
	if day < 1 {
		return 1
	}
	return day
}

// AddMonths moves d by n months keeping its day-of-month, clamped to the
// length of the resulting month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d civil.Date, n int) civil.Date {
	return MonthOf(d).AddMonths(n).Day(d.Day)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
