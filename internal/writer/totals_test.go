package writer

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/moneylens/internal/models"
)

func sampleDocs() []models.DocumentResult {
	uploaded := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return []models.DocumentResult{
		{
			FileID:         "f1",
			Filename:       "invoice.pdf",
			Method:         models.ModeText,
			Text:           "Subtotal: 90.00\nTotal: $99.00",
			ProcessingTime: 0.25,
			Totals: []models.FinancialTotal{
				{Label: "Total", Value: 99, Currency: "USD", LineNumber: 2},
				{Label: "Subtotal", Value: 90, Currency: "USD", LineNumber: 1},
			},
			Metadata: models.DocumentMetadata{FileSize: 2048, UploadTime: uploaded, TextLength: 28, TotalsCount: 2},
		},
		{
			FileID:   "f2",
			Filename: "scan.pdf",
			Method:   models.ModeOCR,
			Metadata: models.DocumentMetadata{FileSize: 10, UploadTime: uploaded},
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteTotals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTotals(&buf, sampleDocs(), false, false))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 4)
	assert.Equal(t, []string{
		"file_id", "filename", "upload_time", "processing_time", "text_extraction_method",
		"total_index", "total_label", "total_value", "total_currency", "total_line_number",
	}, records[0])
	assert.Equal(t, []string{"f1", "invoice.pdf", "2024-05-01T09:30:00Z", "0.250", "text", "1", "Total", "99.00", "USD", "2"}, records[1])
	assert.Equal(t, []string{"f1", "invoice.pdf", "2024-05-01T09:30:00Z", "0.250", "text", "2", "Subtotal", "90.00", "USD", "1"}, records[2])
	assert.Equal(t, []string{"f2", "scan.pdf", "2024-05-01T09:30:00Z", "0.000", "ocr", "0", "None Found", "0.00", "USD", ""}, records[3])
}

func TestWriteTotals_OptionalColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTotals(&buf, sampleDocs()[:1], true, true))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	header := records[0]
	require.Len(t, header, 15)
	assert.Equal(t, "parsed_text", header[5])
	assert.Equal(t, "metadata_file_size", header[6])
	assert.Equal(t, "metadata_totals_count", header[9])

	row := records[1]
	assert.Equal(t, "Subtotal: 90.00\nTotal: $99.00", row[5])
	assert.Equal(t, "2048", row[6])
	assert.Equal(t, "28", row[8])
	assert.Equal(t, "2", row[9])
}

func TestWriteTotals_NoDocuments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTotals(&buf, nil, true, false))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 1)
	assert.Contains(t, records[0], "parsed_text")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleDocs()))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"file_id", "filename", "upload_time", "processing_time", "text_extraction_method",
		"totals_found", "highest_total_label", "highest_total_value", "highest_total_currency", "all_totals",
	}, records[0])
	assert.Equal(t, []string{
		"f1", "invoice.pdf", "2024-05-01T09:30:00Z", "0.250", "text",
		"2", "Total", "99.00", "USD", "Total: 99.00 USD; Subtotal: 90.00 USD",
	}, records[1])
	assert.Equal(t, []string{
		"f2", "scan.pdf", "2024-05-01T09:30:00Z", "0.000", "ocr",
		"0", "None", "0.00", "USD", "None found",
	}, records[2])
}

func TestWriteSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, nil))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 1)
	assert.Equal(t, "file_id", records[0][0])
}
