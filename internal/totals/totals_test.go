package totals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/moneylens/internal/models"
)

func txn(amount float64, balance *float64) models.Transaction {
	return models.NewTransaction("2024-01-15", "TEST", amount, balance)
}

func bal(v float64) *float64 { return &v }

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		txns []models.Transaction
		want models.Totals
	}{
		{
			name: "empty list is all zero",
			want: models.Totals{},
		},
		{
			name: "mixed flows",
			txns: []models.Transaction{txn(2500, nil), txn(-25.99, nil), txn(-45, nil), txn(0, nil)},
			want: models.Totals{Inflow: 2500, Outflow: 70.99, Net: 2429.01, FlowVolume: 2570.99},
		},
		{
			name: "only debits",
			txns: []models.Transaction{txn(-10.10, nil), txn(-0.20, nil)},
			want: models.Totals{Inflow: 0, Outflow: 10.3, Net: -10.3, FlowVolume: 10.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.txns))
		})
	}
}

func TestComputeRoundsOnlyAtOutput(t *testing.T) {
	// 1000 x 0.001 sums to exactly 1.00; rounding each term would give 0.
	txns := make([]models.Transaction, 1000)
	for i := range txns {
		txns[i] = txn(0.001, nil)
	}
	got := Compute(txns)
	assert.Equal(t, 1.0, got.Inflow)
	assert.Equal(t, 1.0, got.FlowVolume)
}

func TestComputeInvariants(t *testing.T) {
	txns := []models.Transaction{txn(100.25, nil), txn(-0.1, nil), txn(-0.2, nil), txn(33.33, nil)}

	first := Compute(txns)
	second := Compute(txns)
	assert.Equal(t, first, second, "Compute must be idempotent")

	assert.InDelta(t, first.Inflow-first.Outflow, first.Net, 0.005)
	assert.InDelta(t, first.Inflow+first.Outflow, first.FlowVolume, 0.005)

	reversed := []models.Transaction{txns[3], txns[2], txns[1], txns[0]}
	assert.Equal(t, first, Compute(reversed), "Compute must not depend on order")
}

func TestCheckBalance(t *testing.T) {
	t.Run("both balances known", func(t *testing.T) {
		bc := CheckBalance(bal(1000), bal(1300), models.Totals{Net: 300})
		require.NotNil(t, bc)
		assert.Equal(t, 1000.0, bc.Opening)
		assert.Equal(t, 1300.0, bc.Closing)
		assert.Equal(t, 1300.0, bc.ExpectedClosing)
		assert.True(t, bc.Matches())
	})

	t.Run("mismatch is still reported", func(t *testing.T) {
		bc := CheckBalance(bal(1000), bal(1250), models.Totals{Net: 300})
		require.NotNil(t, bc)
		assert.Equal(t, 1300.0, bc.ExpectedClosing)
		assert.False(t, bc.Matches())
	})

	t.Run("missing balance", func(t *testing.T) {
		assert.Nil(t, CheckBalance(nil, bal(10), models.Totals{}))
		assert.Nil(t, CheckBalance(bal(10), nil, models.Totals{}))
	})
}

func TestOpeningClosing(t *testing.T) {
	txns := []models.Transaction{
		txn(-5, nil),
		txn(-10, bal(990)),
		txn(20, nil),
		txn(300, bal(1310)),
		txn(-1, nil),
	}
	opening, closing := OpeningClosing(txns)
	require.NotNil(t, opening)
	require.NotNil(t, closing)
	assert.Equal(t, 990.0, *opening)
	assert.Equal(t, 1310.0, *closing)

	opening, closing = OpeningClosing([]models.Transaction{txn(1, nil)})
	assert.Nil(t, opening)
	assert.Nil(t, closing)
}
