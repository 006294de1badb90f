package parser

import (
	"regexp"
	"slices"
	"strings"

	"github.com/insightdelivered/moneylens/internal/models"
)

const (
	minTableCells   = 3
	minTextSegments = 3
	minOCRSegments  = 2
)

// columnGap splits a layout line into columns: two or more whitespace characters.
var columnGap = regexp.MustCompile(`\s{2,}`)

// Row is a transaction candidate read from one table row or text line,
// before it becomes a models.Transaction.
type Row struct {
	Date        string
	Description string
	Amount      float64
	Balance     *float64
}

// Transaction converts the row into a typed transaction.
func (r Row) Transaction() models.Transaction {
	return models.NewTransaction(r.Date, r.Description, r.Amount, r.Balance)
}

// TextRows extracts candidate rows from text-layer pages in reading order.
// Pages with tables are read cell by cell; other pages fall back to
// splitting their text lines on column gaps.
func TextRows(pages []models.Page) []Row {
	var rows []Row
	for _, page := range pages {
		if len(page.Tables) > 0 {
			for _, table := range page.Tables {
				for _, cells := range table {
					if row, ok := tableRow(cells); ok {
						rows = append(rows, row)
					}
				}
			}
			continue
		}
		for _, line := range strings.Split(page.Text, "\n") {
			if row, ok := lineRow(line, minTextSegments); ok {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// OCRRows extracts candidate rows from recognised page text. Pages whose
// recognition failed contribute nothing.
func OCRRows(pages []models.OCRPage) []Row {
	var rows []Row
	for _, page := range pages {
		if page.Err != nil {
			continue
		}
		for _, line := range strings.Split(page.Text, "\n") {
			if row, ok := lineRow(sanitizeOCRAmounts(line), minOCRSegments); ok {
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// tableRow reads one table row. The first cell is the date; of the later
// cells, those containing a digit are numeric columns. The last numeric
// column is the amount and the one before it, if any, the running balance.
func tableRow(raw []string) (Row, bool) {
	if len(raw) < minTableCells {
		return Row{}, false
	}
	cells := make([]string, len(raw))
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
	}

	// Cell 0 is skipped: a date like 01/02/2024 has digits but is never the
	// amount or the balance.
	var numeric []int
	for i := 1; i < len(cells); i++ {
		if hasDigit(cells[i]) {
			numeric = append(numeric, i)
		}
	}
	if len(numeric) == 0 {
		return Row{}, false
	}

	row := Row{
		Date:   ParseDate(cells[0]),
		Amount: ParseAmount(cells[numeric[len(numeric)-1]]),
	}
	if len(numeric) > 1 {
		bal := ParseAmount(cells[numeric[len(numeric)-2]])
		row.Balance = &bal
	}

	var desc []string
	for i := 1; i < len(cells); i++ {
		if cells[i] != "" && !slices.Contains(numeric, i) {
			desc = append(desc, cells[i])
		}
	}
	row.Description = strings.Join(desc, " ")
	if row.Description == "" {
		row.Description = cells[1]
	}
	return row, true
}

// lineRow reads "date  description  amount" from a layout line. Lines whose
// last column has no digit at all are headers or footers and are skipped.
func lineRow(line string, minSegments int) (Row, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Row{}, false
	}
	parts := columnGap.Split(line, -1)
	if len(parts) < minSegments {
		return Row{}, false
	}

	last := parts[len(parts)-1]
	amount := ParseAmount(last)
	if amount == 0 && !hasDigit(last) {
		return Row{}, false
	}

	row := Row{
		Date:   ParseDate(parts[0]),
		Amount: amount,
	}
	switch {
	case len(parts) > 2:
		row.Description = strings.Join(parts[1:len(parts)-1], " ")
	case row.Date == parts[0]:
		// The first column is not a date: it is the description.
		row.Description = parts[0]
	default:
		row.Description = parts[1]
	}
	return row, true
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
