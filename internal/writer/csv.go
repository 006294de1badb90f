// Package writer renders parse results as CSV and XLSX.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/moneylens/internal/models"
)

// transactionRecord is one CSV row; column order follows the fields.
type transactionRecord struct {
	Date          string `csv:"date"`
	Description   string `csv:"description"`
	Amount        string `csv:"amount"`
	Type          string `csv:"type"`
	Balance       string `csv:"balance"`
	Currency      string `csv:"currency"`
	SourceAccount string `csv:"source_account"`
}

// CSVWriter writes statement transactions to CSV.
type CSVWriter struct {
	// IncludeSummary prefixes the rows with "# " comment rows holding the
	// totals and statement metadata.
	IncludeSummary bool
}

// WriteToFile writes res to a CSV file at path.
func (w *CSVWriter) WriteToFile(path string, res *models.ParseResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes res in CSV format to out.
func (w *CSVWriter) Write(out io.Writer, res *models.ParseResult) error {
	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(out))

	if w.IncludeSummary {
		for _, row := range summaryRows(res) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV summary: %w", err)
			}
		}
	}
	return writeTransactions(cw, res.Transactions)
}

// WriteTransactions writes bare transaction rows with a header.
func WriteTransactions(out io.Writer, txns []models.Transaction) error {
	return writeTransactions(gocsv.NewSafeCSVWriter(csv.NewWriter(out)), txns)
}

func writeTransactions(cw *gocsv.SafeCSVWriter, txns []models.Transaction) error {
	records := make([]transactionRecord, 0, len(txns))
	for _, t := range txns {
		records = append(records, transactionRecord{
			Date:          t.Date,
			Description:   t.Description,
			Amount:        formatAmount(t.Amount),
			Type:          t.Type,
			Balance:       formatBalance(t.Balance),
			Currency:      t.Currency,
			SourceAccount: t.SourceAccount,
		})
	}
	if err := gocsv.MarshalCSV(records, cw); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func summaryRows(res *models.ParseResult) [][]string {
	meta := res.Metadata
	rows := [][]string{
		{"# Mode Used", modeName(meta.ModeUsed)},
		{"# Transactions", strconv.Itoa(meta.TransactionCount)},
		{"# Inflow", formatAmount(res.Totals.Inflow)},
		{"# Outflow", formatAmount(res.Totals.Outflow)},
		{"# Net", formatAmount(res.Totals.Net)},
		{"# Flow Volume", formatAmount(res.Totals.FlowVolume)},
	}
	if bc := meta.BalanceCheck; bc != nil {
		rows = append(rows,
			[]string{"# Opening Balance", formatAmount(bc.Opening)},
			[]string{"# Closing Balance", formatAmount(bc.Closing)},
			[]string{"# Expected Closing", formatAmount(bc.ExpectedClosing)},
		)
	}
	for _, kv := range [][2]string{
		{"# Institution", meta.Institution},
		{"# Account Number", meta.SourceAccount},
		{"# Sort Code", meta.SortCode},
		{"# Currency", meta.Currency},
	} {
		if kv[1] != "" {
			rows = append(rows, []string{kv[0], kv[1]})
		}
	}
	return rows
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func formatBalance(b *float64) string {
	if b == nil {
		return ""
	}
	return formatAmount(*b)
}

func modeName(m models.Mode) string {
	if m == models.ModeNone {
		return "none"
	}
	return string(m)
}
