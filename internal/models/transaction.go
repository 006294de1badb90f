package models

import (
	"math"
	"strings"
)

// Transaction types. A zero amount is reported as a debit.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Transaction represents a single bank statement transaction.
type Transaction struct {
	Date          string   `json:"date"`
	Description   string   `json:"description"`
	Amount        float64  `json:"amount"`            // positive = credit, negative = debit
	Type          string   `json:"type"`              // credit or debit, derived from Amount
	Balance       *float64 `json:"balance"`           // nil when the source row has no running balance
	Currency      string   `json:"currency,omitempty"`
	SourceAccount string   `json:"source_account,omitempty"`
}

// NewTransaction builds a Transaction and derives its type from the amount.
// Non-finite amounts become zero and non-finite balances are dropped.
func NewTransaction(date, description string, amount float64, balance *float64) Transaction {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	if balance != nil && (math.IsNaN(*balance) || math.IsInf(*balance, 0)) {
		balance = nil
	}
	if balance != nil {
		b := *balance
		balance = &b
	}
	return Transaction{
		Date:        strings.TrimSpace(date),
		Description: strings.Join(strings.Fields(description), " "),
		Amount:      amount,
		Type:        TypeFor(amount),
		Balance:     balance,
	}
}

// TypeFor returns the transaction type for a signed amount.
func TypeFor(amount float64) string {
	if amount > 0 {
		return TypeCredit
	}
	return TypeDebit
}

// Totals are the aggregate flows of a transaction list, rounded to 2 decimals.
type Totals struct {
	Inflow     float64 `json:"inflow"`
	Outflow    float64 `json:"outflow"`
	Net        float64 `json:"net"`
	FlowVolume float64 `json:"flow_volume"`
}

// BalanceCheck compares the first and last running balance with the net flow.
type BalanceCheck struct {
	Opening         float64 `json:"opening"`
	Closing         float64 `json:"closing"`
	ExpectedClosing float64 `json:"expected_closing"`
}

// Matches reports whether the closing balance agrees with opening + net to the cent.
func (b BalanceCheck) Matches() bool {
	return math.Abs(b.Closing-b.ExpectedClosing) < 0.005
}

// Metadata describes how a statement was parsed.
type Metadata struct {
	ModeUsed         Mode          `json:"mode_used"`
	TransactionCount int           `json:"transaction_count"`
	BalanceCheck     *BalanceCheck `json:"balance_check,omitempty"`
	PageCount        int           `json:"page_count"`
	OCRFailedPages   []int         `json:"ocr_failed_pages,omitempty"`
	Institution      string        `json:"institution,omitempty"`
	SourceAccount    string        `json:"source_account,omitempty"`
	SortCode         string        `json:"sort_code,omitempty"`
	Currency         string        `json:"currency,omitempty"`
}

// ParseResult is the output of parsing one statement.
type ParseResult struct {
	Totals       Totals        `json:"totals"`
	Transactions []Transaction `json:"transactions"`
	Metadata     Metadata      `json:"metadata"`
}
