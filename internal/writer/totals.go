package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/money"
)

// WriteTotals writes one row per detected financial total of every
// document, or a single "None Found" row for a document without totals.
// The optional columns carry the full text and the document metadata.
func WriteTotals(out io.Writer, docs []models.DocumentResult, includeText, includeMetadata bool) error {
	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(out))

	header := []string{"file_id", "filename", "upload_time", "processing_time", "text_extraction_method"}
	if includeText {
		header = append(header, "parsed_text")
	}
	if includeMetadata {
		header = append(header, "metadata_file_size", "metadata_upload_time", "metadata_text_length", "metadata_totals_count")
	}
	header = append(header, "total_index", "total_label", "total_value", "total_currency", "total_line_number")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, doc := range docs {
		base := []string{
			doc.FileID,
			doc.Filename,
			formatTime(doc.Metadata.UploadTime),
			formatSeconds(doc.ProcessingTime),
			modeName(doc.Method),
		}
		if includeText {
			base = append(base, doc.Text)
		}
		if includeMetadata {
			m := doc.Metadata
			base = append(base,
				strconv.FormatInt(m.FileSize, 10),
				formatTime(m.UploadTime),
				strconv.Itoa(m.TextLength),
				strconv.Itoa(m.TotalsCount),
			)
		}

		if len(doc.Totals) == 0 {
			row := append(slices.Clone(base), "0", "None Found", formatAmount(0), money.DefaultCurrency, "")
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
			continue
		}
		for i, t := range doc.Totals {
			row := append(slices.Clone(base),
				strconv.Itoa(i+1),
				t.Label,
				formatAmount(t.Value),
				t.Currency,
				strconv.Itoa(t.LineNumber),
			)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

type summaryRecord struct {
	FileID               string `csv:"file_id"`
	Filename             string `csv:"filename"`
	UploadTime           string `csv:"upload_time"`
	ProcessingTime       string `csv:"processing_time"`
	Method               string `csv:"text_extraction_method"`
	TotalsFound          int    `csv:"totals_found"`
	HighestTotalLabel    string `csv:"highest_total_label"`
	HighestTotalValue    string `csv:"highest_total_value"`
	HighestTotalCurrency string `csv:"highest_total_currency"`
	AllTotals            string `csv:"all_totals"`
}

// WriteSummary writes one row per document with its highest total.
func WriteSummary(out io.Writer, docs []models.DocumentResult) error {
	records := make([]summaryRecord, 0, len(docs))
	for _, doc := range docs {
		rec := summaryRecord{
			FileID:               doc.FileID,
			Filename:             doc.Filename,
			UploadTime:           formatTime(doc.Metadata.UploadTime),
			ProcessingTime:       formatSeconds(doc.ProcessingTime),
			Method:               modeName(doc.Method),
			TotalsFound:          len(doc.Totals),
			HighestTotalLabel:    "None",
			HighestTotalValue:    formatAmount(0),
			HighestTotalCurrency: money.DefaultCurrency,
			AllTotals:            "None found",
		}
		if len(doc.Totals) > 0 {
			top := doc.Totals[0]
			for _, t := range doc.Totals[1:] {
				if t.Value > top.Value {
					top = t
				}
			}
			rec.HighestTotalLabel = top.Label
			rec.HighestTotalValue = formatAmount(top.Value)
			rec.HighestTotalCurrency = top.Currency

			all := make([]string, len(doc.Totals))
			for i, t := range doc.Totals {
				all[i] = fmt.Sprintf("%s: %s %s", t.Label, formatAmount(t.Value), t.Currency)
			}
			rec.AllTotals = strings.Join(all, "; ")
		}
		records = append(records, rec)
	}

	cw := gocsv.NewSafeCSVWriter(csv.NewWriter(out))
	if err := gocsv.MarshalCSV(records, cw); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
