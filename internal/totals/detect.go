package totals

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/money"
)

// MaxDetected caps the number of totals Detect returns.
const MaxDetected = 10

// minFigure filters stray single digits and page numbers.
const minFigure = 0.01

// figure is the tail shared by every pattern: optional currency symbol,
// then a comma-grouped number. Group 1 is the symbol, group 2 the number.
const figure = `([$£€¥₹]?)\s*([0-9,]+\.?[0-9]*)`

// A totalPattern is one labelled rule in the detection chain. New formats
// are added by appending to detectors, not by touching Detect.
type totalPattern struct {
	label     string
	re        *regexp.Regexp
	normalize func(number string) (float64, bool)
}

// detectors run in this order on every line; the order decides which label
// survives when two rules find the same value.
var detectors = []totalPattern{
	{"Total", regexp.MustCompile(`(?i)total[\s:]*` + figure), normalizeFigure},
	{"Subtotal", regexp.MustCompile(`(?i)subtotal[\s:]*` + figure), normalizeFigure},
	{"Tax", regexp.MustCompile(`(?i)tax[\s:]*` + figure), normalizeFigure},
	// "Amount Due: $12.00", "Amount paid 12.00"
	{"Amount", regexp.MustCompile(`(?i)amount[\s\w]*?[\s:]*` + figure), normalizeFigure},
	// "Balance Due: $42.00", "Balance brought forward 100.00"
	{"Balance", regexp.MustCompile(`(?i)balance[\s\w]*?[\s:]*` + figure), normalizeFigure},
	{"Grand Total", regexp.MustCompile(`(?i)grand\s+total[\s:]*` + figure), normalizeFigure},
}

// normalizeFigure strips grouping commas and parses the number.
func normalizeFigure(number string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil || v < minFigure {
		return 0, false
	}
	return v, true
}

// Detect scans text line by line for labelled totals such as "Total: $500.00"
// or "Balance Due 42.00". Each distinct value is reported once, under the
// first label that found it; the result is sorted by value, largest first,
// and holds at most MaxDetected entries.
func Detect(text string) []models.FinancialTotal {
	var found []models.FinancialTotal
	seen := make(map[float64]bool)

	for i, line := range strings.Split(text, "\n") {
		for _, d := range detectors {
			for _, m := range d.re.FindAllStringSubmatch(line, -1) {
				value, ok := d.normalize(m[2])
				if !ok || seen[value] {
					continue
				}
				seen[value] = true
				found = append(found, models.FinancialTotal{
					Label:      d.label,
					Value:      value,
					Currency:   currencyOf(m[1]),
					LineNumber: i + 1,
				})
			}
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		return found[a].Value > found[b].Value
	})
	if len(found) > MaxDetected {
		found = found[:MaxDetected]
	}
	return found
}

func currencyOf(symbol string) string {
	if code, ok := money.CodeForSymbol(symbol); ok {
		return code
	}
	return money.DefaultCurrency
}
