package parser

import "strings"

// institutions maps a display name to identifiers found on its statements.
// Checked in order; the first hit wins.
var institutions = []struct {
	name    string
	needles []string
}{
	{"Metro Bank", []string{"Metro Bank", "metrobankonline"}},
	{"HSBC", []string{"HSBC", "hsbc.co.uk"}},
	{"Barclays", []string{"Barclays", "barclays.co.uk"}},
	{"Lloyds Bank", []string{"Lloyds Bank", "lloydsbank.com"}},
	{"NatWest", []string{"NatWest", "natwest.com"}},
	{"Santander", []string{"Santander"}},
	{"Chase", []string{"JPMorgan Chase", "chase.com"}},
	{"Bank of America", []string{"Bank of America", "bankofamerica.com"}},
	{"Wells Fargo", []string{"Wells Fargo", "wellsfargo.com"}},
	{"HDFC Bank", []string{"HDFC Bank", "hdfcbank.com"}},
	{"ICICI Bank", []string{"ICICI Bank", "icicibank.com"}},
	{"State Bank of India", []string{"State Bank of India", "onlinesbi"}},
}

// DetectInstitution tries to identify the issuing bank from statement text.
// It returns "" when nothing matches.
func DetectInstitution(text string) string {
	lower := strings.ToLower(text)
	for _, inst := range institutions {
		if containsAny(lower, inst.needles) {
			return inst.name
		}
	}
	return ""
}

// containsAny reports whether lowerText contains any needle, ignoring case.
func containsAny(lowerText string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(lowerText, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
