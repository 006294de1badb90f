package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/insightdelivered/moneylens/internal/logger"
	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/totals"
)

// DocumentText returns the whole text of doc for financial-total scanning.
// When the text layer is (nearly) empty and OCR is enabled, the OCR text is
// used instead.
func DocumentText(ctx context.Context, doc Document, cfg Config) (string, models.Mode, error) {
	log := logger.FromContext(ctx)

	pages, err := doc.Pages(ctx)
	if err != nil {
		return "", models.ModeNone, fmt.Errorf("text extraction failed: %w", err)
	}
	text := pagesText(pages)
	if len(strings.TrimSpace(text)) > minDocumentText || !cfg.OCREnabled {
		return text, models.ModeText, nil
	}

	log.Info().Int("text_length", len(text)).Msg("text layer nearly empty, falling back to OCR")
	ocrPages, err := doc.Recognize(ctx, cfg.OCRDPI, cfg.OCRLanguage)
	if err != nil {
		return "", models.ModeNone, fmt.Errorf("OCR failed: %w", err)
	}
	for _, p := range ocrPages {
		if p.Err != nil {
			log.Warn().Err(p.Err).Int("page", p.Number).Msg("OCR failed for page, skipping")
		}
	}
	return ocrText(ocrPages), models.ModeOCR, nil
}

// minDocumentText is the text length below which a document counts as scanned.
const minDocumentText = 20

// Scan reads the whole text of doc and detects the labelled financial
// totals in it. The caller fills in the file identity fields.
func Scan(ctx context.Context, doc Document, cfg Config) (*models.DocumentResult, error) {
	start := time.Now()

	text, method, err := DocumentText(ctx, doc, cfg)
	if err != nil {
		return nil, err
	}
	found := totals.Detect(text)
	if found == nil {
		found = []models.FinancialTotal{}
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("method", string(method)).
		Int("text_length", len(text)).
		Int("totals", len(found)).
		Msg("document scanned")

	return &models.DocumentResult{
		Method:         method,
		Text:           text,
		Totals:         found,
		ProcessingTime: time.Since(start).Seconds(),
		Metadata: models.DocumentMetadata{
			TextLength:  len(text),
			TotalsCount: len(found),
		},
	}, nil
}

func ocrText(pages []models.OCRPage) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Err == nil && strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
