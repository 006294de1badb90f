package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// currencyChars are stripped from amounts before parsing.
const currencyChars = "₹$€£¥₨৳₽﷼₩₺₫"

// dateLayouts are tried in order. Day-first layouts come before month-first,
// so an ambiguous 03/04/2024 is read as 3 April.
var dateLayouts = []string{
	"2/1/2006",       // DD/MM/YYYY
	"2-1-2006",       // DD-MM-YYYY
	"2 Jan 2006",     // D Mon YYYY
	"2 January 2006", // D Month YYYY
	"2006-1-2",       // YYYY-MM-DD
	"1/2/2006",       // MM/DD/YYYY
}

// ParseAmount converts strings like "₹ 1,23,456.78", "$1,000.00" or
// "(1,234.56)" to a signed float. It never fails: anything it cannot read
// is 0.
//
// When only commas are present they are treated as thousands separators,
// so "1,23" reads as 123. Without a locale there is no way to tell a decimal
// comma apart from Indian digit grouping.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)

	negative := false
	if len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(currencyChars, r) {
			return -1
		}
		return r
	}, s)

	// Both separators: comma groups thousands, dot is the decimal point.
	// Only commas: assume grouping (Western or Indian) and drop them.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ",", "")
	}

	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' {
			return r
		}
		return -1
	}, s)

	switch s {
	case "", "-", "+", ".", "-.", "+.":
		return 0
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		return -v
	}
	return v
}

// ParseDate returns s as YYYY-MM-DD if it matches one of the known layouts,
// otherwise the trimmed input unchanged.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

var (
	ocrSemicolonDecimal = regexp.MustCompile(`(\d);(\s*)(\d)`)
	ocrColonDecimal     = regexp.MustCompile(`(\d):(\d)`)
	ocrColonSpace       = regexp.MustCompile(`(\d):\s`)
	ocrColonEnd         = regexp.MustCompile(`(\d):$`)
	ocrTrailingNA       = regexp.MustCompile(`\s+NA\b`)
)

// sanitizeOCRAmounts fixes common OCR errors in amount strings.
// Tesseract often misreads periods as semicolons or colons in numbers.
// E.g., "19,720; 15:" → "19,720.15", "1.00" stays "1.00".
func sanitizeOCRAmounts(line string) string {
	line = ocrSemicolonDecimal.ReplaceAllString(line, "$1.$3")
	line = ocrColonDecimal.ReplaceAllString(line, "$1.$2")
	line = ocrColonSpace.ReplaceAllString(line, "$1 ")
	line = ocrColonEnd.ReplaceAllString(line, "$1")
	// Strip "NA" that OCR appends after amounts
	line = ocrTrailingNA.ReplaceAllString(line, "")
	return line
}

// accountNumberPattern finds an 8-digit UK account number after an
// "Account number", "Account No", "A/C No" or "Account:" label.
var accountNumberPattern = regexp.MustCompile(`(?i)\b(?:account|a/c)(?:\s+(?:number|no\.?|#)\s*:?|\s*:)\s*(\d{8})\b`)

// sortCodePattern finds typical UK sort codes (XX-XX-XX).
var sortCodePattern = regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2})\b`)

// FindAccountNumber returns the first labelled 8-digit account number in
// text, or "" when there is none. Bare 8-digit figures are references or
// compact dates as often as account numbers.
func FindAccountNumber(text string) string {
	m := accountNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// FindSortCode returns the first XX-XX-XX sort code in text.
func FindSortCode(text string) string {
	return sortCodePattern.FindString(text)
}
