package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Settings are the application-wide preferences. They are passed explicitly
// to whatever formats amounts or talks to the AI service.
type Settings struct {
	Language string `json:"language"`
	Currency string `json:"currency"`
	APIKey   string `json:"apiKey,omitempty"`
}

// DefaultSettings is used until the user saves their own.
func DefaultSettings() Settings {
	return Settings{Language: "en", Currency: "USD"}
}

// WithDefaults fills empty fields from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.Language == "" {
		s.Language = d.Language
	}
	if s.Currency == "" {
		s.Currency = d.Currency
	}
	return s
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"PLN": "zł",
	"TRY": "₺",
}

// FormatAmount renders an amount with two decimals, thousands separators
// and the configured currency, e.g. "$1,234.50" or "1,234.50 CHF".
func (s Settings) FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	num := b.String() + "." + frac

	code := strings.ToUpper(s.WithDefaults().Currency)
	if sym, ok := currencySymbols[code]; ok {
		return sign + sym + num
	}
	return sign + num + " " + code
}
