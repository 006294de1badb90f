package writer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/moneylens/internal/models"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"

	// Built-in number format "#,##0.00".
	numFmtMoney = 4
)

var transactionHeader = []any{"Date", "Description", "Amount", "Type", "Balance", "Currency", "Source Account"}

// WriteXLSX writes res as a workbook with a Transactions sheet and a
// Summary sheet.
func WriteXLSX(out io.Writer, res *models.ParseResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	if err := writeTransactionSheet(f, res.Transactions, headerStyle, moneyStyle); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := writeSummarySheet(f, res, moneyStyle); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	return nil
}

func writeTransactionSheet(f *excelize.File, txns []models.Transaction, headerStyle, moneyStyle int) error {
	sheet := transactionsSheet
	if err := f.SetSheetRow(sheet, "A1", &transactionHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", headerStyle); err != nil {
		return err
	}

	for i, t := range txns {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var balance any
		if t.Balance != nil {
			balance = *t.Balance
		}
		row := []any{t.Date, t.Description, t.Amount, t.Type, balance, t.Currency, t.SourceAccount}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if n := len(txns); n > 0 {
		last := n + 1
		if err := f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", last), moneyStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "E2", fmt.Sprintf("E%d", last), moneyStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 48); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummarySheet(f *excelize.File, res *models.ParseResult, moneyStyle int) error {
	meta := res.Metadata
	rows := [][]any{
		{"Mode Used", modeName(meta.ModeUsed)},
		{"Transactions", meta.TransactionCount},
		{"Inflow", res.Totals.Inflow},
		{"Outflow", res.Totals.Outflow},
		{"Net", res.Totals.Net},
		{"Flow Volume", res.Totals.FlowVolume},
	}
	if bc := meta.BalanceCheck; bc != nil {
		rows = append(rows,
			[]any{"Opening Balance", bc.Opening},
			[]any{"Closing Balance", bc.Closing},
			[]any{"Expected Closing", bc.ExpectedClosing},
		)
	}
	rows = append(rows,
		[]any{"Institution", meta.Institution},
		[]any{"Account Number", meta.SourceAccount},
		[]any{"Sort Code", meta.SortCode},
		[]any{"Currency", meta.Currency},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if _, ok := row[1].(float64); ok {
			valueCell := fmt.Sprintf("B%d", i+1)
			if err := f.SetCellStyle(summarySheet, valueCell, valueCell, moneyStyle); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 20)
}
