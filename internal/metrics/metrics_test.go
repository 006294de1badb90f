package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/moneylens/internal/models"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.ObserveStatement(&models.ParseResult{
		Transactions: make([]models.Transaction, 7),
		Metadata:     models.Metadata{ModeUsed: models.ModeOCR},
	}, 2*time.Second)
	r.ObserveStatement(&models.ParseResult{Metadata: models.Metadata{ModeUsed: models.ModeNone}}, time.Millisecond)
	r.ObserveDocument(&models.DocumentResult{Method: models.ModeText, Totals: make([]models.FinancialTotal, 3)}, time.Second)
	r.ObserveFailure(OpStatement)
	r.ObserveStatement(nil, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.parses.WithLabelValues(OpStatement, "ocr")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.parses.WithLabelValues(OpStatement, "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.parses.WithLabelValues(OpDocument, "text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues(OpStatement)))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveStatement(&models.ParseResult{}, time.Second)
		r.ObserveDocument(&models.DocumentResult{}, time.Second)
		r.ObserveFailure(OpDocument)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveFailure(OpDocument)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `moneylens_parse_failures_total{operation="document"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	_, err := r.Registry().Gather()
	assert.NoError(t, err)
}
