// Package pricing turns display prices ("1 234,56 €") into decimal amounts.
package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrNoAmount = errors.New("no amount in price")

// Amount is a parsed display price.
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency,omitempty"`
}

var currencySymbols = []struct {
	token string
	code  string
}{
	{"€", "EUR"},
	{"EUR", "EUR"},
	{"£", "GBP"},
	{"GBP", "GBP"},
	{"$", "USD"},
	{"USD", "USD"},
}

// Parse reads a display price. Both "1.234,56" and "1,234.56" are accepted: when
// both separators occur the last one is the decimal separator, a lone comma is
// always decimal and a lone dot is decimal unless it repeats.
func Parse(display string) (Amount, error) {
	var amount Amount
	upper := strings.ToUpper(display)
	for _, c := range currencySymbols {
		if strings.Contains(upper, c.token) {
			amount.Currency = c.code
			break
		}
	}

	var b strings.Builder
	for _, r := range display {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		}
	}
	raw := strings.Trim(b.String(), ",.")
	if raw == "" {
		return Amount{}, ErrNoAmount
	}

	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") > 1 {
			raw = strings.ReplaceAll(raw, ",", "")
		} else {
			raw = strings.Replace(raw, ",", ".", 1)
		}
	case strings.Count(raw, ".") > 1:
		raw = strings.ReplaceAll(raw, ".", "")
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, ErrNoAmount
	}
	amount.Value = value
	return amount, nil
}

// ParseOptional returns the amount of display, or nil when it holds no amount.
func ParseOptional(display string) *Amount {
	a, err := Parse(display)
	if err != nil {
		return nil
	}
	return &a
}
