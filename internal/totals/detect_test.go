package totals

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/moneylens/internal/models"
)

func TestDetect_DeduplicatesByValue(t *testing.T) {
	got := Detect("Total: $500.00\nsome text\nTotal: $500.00")
	require.Len(t, got, 1)
	assert.Equal(t, models.FinancialTotal{Label: "Total", Value: 500, Currency: "USD", LineNumber: 1}, got[0])
}

func TestDetect_Labels(t *testing.T) {
	tests := []struct {
		line  string
		label string
		value float64
	}{
		{"Total: $123.45", "Total", 123.45},
		{"Tax 8.25", "Tax", 8.25},
		{"Amount Due: $1,234.56", "Amount", 1234.56},
		{"Balance Due: 42.00", "Balance", 42},
		{"Balance brought forward 1,000.00", "Balance", 1000},
		// "Subtotal" also contains "total"; the Total rule runs first.
		{"Subtotal: 99.99", "Total", 99.99},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Detect(tt.line)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.label, got[0].Label)
			assert.Equal(t, tt.value, got[0].Value)
			assert.Equal(t, 1, got[0].LineNumber)
		})
	}
}

func TestDetect_SortedAndLineNumbers(t *testing.T) {
	text := strings.Join([]string{
		"INVOICE",
		"Tax: 10.00",
		"Grand Total: 250.00",
		"Amount paid 75.50",
	}, "\n")

	got := Detect(text)
	require.Len(t, got, 3)
	assert.Equal(t, 250.0, got[0].Value)
	assert.Equal(t, 3, got[0].LineNumber)
	assert.Equal(t, "Total", got[0].Label)
	assert.Equal(t, 75.5, got[1].Value)
	assert.Equal(t, "Amount", got[1].Label)
	assert.Equal(t, 4, got[1].LineNumber)
	assert.Equal(t, 10.0, got[2].Value)
	assert.Equal(t, 2, got[2].LineNumber)
}

func TestDetect_IgnoresTinyValues(t *testing.T) {
	assert.Empty(t, Detect("Total: 0.00\nTax 0"))
}

func TestDetect_CapsAtTen(t *testing.T) {
	var lines []string
	for i := 1; i <= 15; i++ {
		lines = append(lines, fmt.Sprintf("Total: %d.00", i))
	}
	got := Detect(strings.Join(lines, "\n"))
	require.Len(t, got, MaxDetected)
	assert.Equal(t, 15.0, got[0].Value)
	assert.Equal(t, 6.0, got[len(got)-1].Value)
}

func TestDetect_Currency(t *testing.T) {
	got := Detect("Total: £75.00\nTax: €5.00\nAmount 3.00")
	require.Len(t, got, 3)
	assert.Equal(t, "GBP", got[0].Currency)
	assert.Equal(t, "EUR", got[1].Currency)
	assert.Equal(t, "USD", got[2].Currency)
}

func TestDetect_CaseInsensitive(t *testing.T) {
	for _, line := range []string{"TOTAL: 12.00", "total 12.00", "ToTaL:12.00"} {
		got := Detect(line)
		require.Len(t, got, 1, line)
		assert.Equal(t, 12.0, got[0].Value)
		assert.Equal(t, "Total", got[0].Label)
	}
}
