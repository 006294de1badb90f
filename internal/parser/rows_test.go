package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/moneylens/internal/models"
)

func TestTextRows_Tables(t *testing.T) {
	pages := []models.Page{{
		Number: 1,
		Tables: []models.Table{{
			{"Date", "Details", "Balance", "Amount"},
			{"15/01/2024", "SALARY", "1,000.00", "2,500.00"},
			{"16/01/2024", "REF", "CARD", "(45.00)"},
			{"17/01/2024", "12345", "10.00"},
			{"too", "short"},
			{"18/01/2024", "NO AMOUNT", ""},
		}},
		// Ignored: the page has tables.
		Text: "15/01/2024  SALARY  2,500.00",
	}}

	rows := TextRows(pages)
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-01-15", rows[0].Date)
	assert.Equal(t, "SALARY", rows[0].Description)
	assert.Equal(t, 2500.0, rows[0].Amount)
	require.NotNil(t, rows[0].Balance)
	assert.Equal(t, 1000.0, *rows[0].Balance)

	assert.Equal(t, "REF CARD", rows[1].Description)
	assert.Equal(t, -45.0, rows[1].Amount)
	assert.Nil(t, rows[1].Balance)

	// Every later cell is numeric: description falls back to the second cell.
	assert.Equal(t, "12345", rows[2].Description)
	assert.Equal(t, 10.0, rows[2].Amount)
	require.NotNil(t, rows[2].Balance)
	assert.Equal(t, 12345.0, *rows[2].Balance)
}

func TestTextRows_Lines(t *testing.T) {
	pages := []models.Page{{
		Number: 1,
		Text: "Statement  for  January\n" +
			"15/01/2024  CARD PAYMENT  TESCO  -25.99\n" +
			"\n" +
			"16/01/2024  SALARY  2,500.00\n" +
			"Page 1 of 2\n" +
			"Closing balance  carried  forward\n" +
			"17/01/2024  TRANSFER",
	}}

	rows := TextRows(pages)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{Date: "2024-01-15", Description: "CARD PAYMENT TESCO", Amount: -25.99}, rows[0])
	assert.Equal(t, Row{Date: "2024-01-16", Description: "SALARY", Amount: 2500}, rows[1])
}

func TestTextRows_KeepsPageOrder(t *testing.T) {
	pages := []models.Page{
		{Number: 1, Text: "01/01/2024  FIRST  1.00"},
		{Number: 2, Tables: []models.Table{{{"02/01/2024", "SECOND", "2.00"}}}},
		{Number: 3, Text: "03/01/2024  THIRD  3.00"},
	}

	rows := TextRows(pages)
	require.Len(t, rows, 3)
	assert.Equal(t, "FIRST", rows[0].Description)
	assert.Equal(t, "SECOND", rows[1].Description)
	assert.Equal(t, "THIRD", rows[2].Description)
}

func TestOCRRows(t *testing.T) {
	pages := []models.OCRPage{
		{Number: 1, Text: "01/02/2024  COFFEE SHOP  -3.50\n" +
			"02/02/2024 GROCERIES  12;40\n" +
			"03/02/2024  1,000.00\n" +
			"Thank you for banking with us\n" +
			"Total  NA"},
		{Number: 2, Err: errors.New("tesseract crashed"), Text: "04/02/2024  IGNORED  9.99"},
		{Number: 3, Text: "05/02/2024  REFUND  7.25"},
	}

	rows := OCRRows(pages)
	require.Len(t, rows, 4)

	assert.Equal(t, Row{Date: "2024-02-01", Description: "COFFEE SHOP", Amount: -3.5}, rows[0])

	// Date merged with the first word: the whole segment is the description.
	assert.Equal(t, "02/02/2024 GROCERIES", rows[1].Date)
	assert.Equal(t, "02/02/2024 GROCERIES", rows[1].Description)
	assert.Equal(t, 12.40, rows[1].Amount)

	// Two segments with a real date: the other segment is the description.
	assert.Equal(t, "2024-02-03", rows[2].Date)
	assert.Equal(t, "1,000.00", rows[2].Description)
	assert.Equal(t, 1000.0, rows[2].Amount)

	assert.Equal(t, "REFUND", rows[3].Description)
	for _, r := range rows {
		assert.Nil(t, r.Balance)
	}
}

func TestRowTransaction(t *testing.T) {
	b := 10.0
	tx := Row{Date: "2024-01-01", Description: "  MULTI   SPACE ", Amount: 0, Balance: &b}.Transaction()

	assert.Equal(t, models.TypeDebit, tx.Type)
	assert.Equal(t, "MULTI SPACE", tx.Description)
	require.NotNil(t, tx.Balance)
	assert.Equal(t, 10.0, *tx.Balance)

	tx = Row{Amount: 0.01}.Transaction()
	assert.Equal(t, models.TypeCredit, tx.Type)
}
