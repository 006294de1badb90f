// Package totals aggregates parsed transactions and detects labelled
// financial totals mentioned in free text.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/money"
)

// Compute returns inflow, outflow, net and flow volume for txns. Sums are
// exact decimals; rounding to cents happens once, on output.
func Compute(txns []models.Transaction) models.Totals {
	inflow, outflow := decimal.Zero, decimal.Zero
	for _, t := range txns {
		amt := decimal.NewFromFloat(t.Amount)
		switch amt.Sign() {
		case 1:
			inflow = inflow.Add(amt)
		case -1:
			outflow = outflow.Add(amt.Neg())
		}
	}
	return models.Totals{
		Inflow:     money.RoundDecimal(inflow),
		Outflow:    money.RoundDecimal(outflow),
		Net:        money.RoundDecimal(inflow.Sub(outflow)),
		FlowVolume: money.RoundDecimal(inflow.Add(outflow)),
	}
}

// CheckBalance reports the expected closing balance (opening + net) when
// both balances are known, and nil otherwise. A mismatch is informational.
func CheckBalance(opening, closing *float64, t models.Totals) *models.BalanceCheck {
	if opening == nil || closing == nil {
		return nil
	}
	expected := decimal.NewFromFloat(*opening).Add(decimal.NewFromFloat(t.Net))
	return &models.BalanceCheck{
		Opening:         *opening,
		Closing:         *closing,
		ExpectedClosing: money.RoundDecimal(expected),
	}
}

// OpeningClosing returns the first and the last running balance in txns.
func OpeningClosing(txns []models.Transaction) (opening, closing *float64) {
	for i := range txns {
		if txns[i].Balance != nil {
			opening = txns[i].Balance
			break
		}
	}
	for i := len(txns) - 1; i >= 0; i-- {
		if txns[i].Balance != nil {
			closing = txns[i].Balance
			break
		}
	}
	return opening, closing
}
