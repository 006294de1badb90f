// Package money holds the small amount of currency handling the parser needs:
// rounding at the output boundary and mapping currency symbols to ISO-4217
// codes. Currency is metadata only; amounts are never converted.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	GBP = "GBP"
	EUR = "EUR"
	INR = "INR"
	JPY = "JPY"
)

// DefaultCurrency is reported when a figure carries no symbol.
const DefaultCurrency = USD

// preferred decides which code a shared grapheme maps to ("$" is USD, not AUD).
var preferred = []string{USD, GBP, EUR, INR, JPY}

var symbolToCode = buildSymbolIndex()

func buildSymbolIndex() map[string]string {
	idx := make(map[string]string, len(preferred))
	for _, code := range preferred {
		c := money.GetCurrency(code)
		if c == nil || c.Grapheme == "" {
			continue
		}
		if _, taken := idx[c.Grapheme]; !taken {
			idx[c.Grapheme] = code
		}
	}
	return idx
}

// CodeForSymbol maps a currency symbol such as "£" to its ISO code.
func CodeForSymbol(symbol string) (string, bool) {
	code, ok := symbolToCode[strings.TrimSpace(symbol)]
	return code, ok
}

// Symbols returns the currency symbols that CodeForSymbol understands,
// in preference order.
func Symbols() []string {
	out := make([]string, 0, len(preferred))
	for _, code := range preferred {
		if c := money.GetCurrency(code); c != nil && c.Grapheme != "" && symbolToCode[c.Grapheme] == code {
			out = append(out, c.Grapheme)
		}
	}
	return out
}

// DetectCurrency returns the code of the most frequent known currency symbol
// in text, or "" if none appears. Ties go to the earlier preferred currency.
func DetectCurrency(text string) string {
	best, bestCount := "", 0
	for _, sym := range Symbols() {
		if n := strings.Count(text, sym); n > bestCount {
			best, bestCount = symbolToCode[sym], n
		}
	}
	return best
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return RoundDecimal(decimal.NewFromFloat(v))
}

// RoundDecimal rounds d to cents and returns it as a float.
func RoundDecimal(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
