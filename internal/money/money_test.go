package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeForSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		code   string
		ok     bool
	}{
		{"$", USD, true},
		{"£", GBP, true},
		{"€", EUR, true},
		{" £ ", GBP, true},
		{"#", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			code, ok := CodeForSymbol(tt.symbol)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, GBP, DetectCurrency("Opening balance £100.00\nCard £5.00\nFee $1"))
	assert.Equal(t, USD, DetectCurrency("Total $10 and €10"))
	assert.Equal(t, "", DetectCurrency("no symbols at all"))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.3, Round2(0.1+0.2))
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -2.5, Round2(-2.499999))
	assert.Equal(t, 0.0, Round2(0))
}
