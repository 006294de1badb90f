package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/insightdelivered/moneylens/internal/logger"
	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/money"
	"github.com/insightdelivered/moneylens/internal/totals"
)

// DefaultMinTextRows is how many text-layer rows auto mode needs before it
// trusts the text layer. Fewer rows usually means a scanned statement.
const DefaultMinTextRows = 5

// ErrOCRDisabled is returned when OCR is requested but turned off.
var ErrOCRDisabled = errors.New("OCR is disabled")

// Document is a statement PDF as seen by the parser. Pages returns the text
// layer (tables and plain text) of every page; Recognize renders the pages
// at the given DPI and runs OCR on each. Both fail only when the document
// as a whole cannot be read; a single unreadable OCR page is reported
// through OCRPage.Err.
type Document interface {
	Pages(ctx context.Context) ([]models.Page, error)
	Recognize(ctx context.Context, dpi int, language string) ([]models.OCRPage, error)
}

// Config holds the settings one parse runs with.
type Config struct {
	OCREnabled  bool
	OCRDPI      int
	OCRLanguage string
	MinTextRows int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		OCREnabled:  true,
		OCRDPI:      300,
		OCRLanguage: "eng",
		MinTextRows: DefaultMinTextRows,
	}
}

func (c Config) minTextRows() int {
	if c.MinTextRows <= 0 {
		return DefaultMinTextRows
	}
	return c.MinTextRows
}

// Decision is the outcome of mode selection.
type Decision int

const (
	// DecisionForced: the caller asked for text or OCR explicitly.
	DecisionForced Decision = iota
	// DecisionTextOK: auto mode found enough text-layer rows.
	DecisionTextOK
	// DecisionOCRFallback: auto mode found too few rows and will OCR.
	DecisionOCRFallback
	// DecisionNone: auto mode found too few rows and OCR is disabled.
	DecisionNone
)

func (d Decision) String() string {
	switch d {
	case DecisionForced:
		return "forced"
	case DecisionTextOK:
		return "text_ok"
	case DecisionOCRFallback:
		return "ocr_fallback"
	case DecisionNone:
		return "none"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Decide applies the auto-mode quality gate. textRows is only meaningful
// in auto mode; the threshold is inclusive.
func Decide(mode models.Mode, textRows, threshold int, ocrEnabled bool) Decision {
	switch {
	case mode != models.ModeAuto:
		return DecisionForced
	case textRows >= threshold:
		return DecisionTextOK
	case ocrEnabled:
		return DecisionOCRFallback
	default:
		return DecisionNone
	}
}

// Parse extracts the transactions of doc using mode and aggregates them.
// It returns an error only when the document cannot be read at all; empty
// or unparseable pages give an empty result.
func Parse(ctx context.Context, doc Document, mode models.Mode, cfg Config) (*models.ParseResult, error) {
	log := logger.FromContext(ctx)

	if mode == models.ModeNone {
		mode = models.ModeAuto
	}
	if mode != models.ModeAuto && mode != models.ModeText && mode != models.ModeOCR {
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
	if mode == models.ModeOCR && !cfg.OCREnabled {
		return nil, ErrOCRDisabled
	}

	var (
		rows     []Row
		pages    []models.Page
		meta     models.Metadata
		textSeen string
	)

	if mode == models.ModeAuto || mode == models.ModeText {
		var err error
		pages, err = doc.Pages(ctx)
		if err != nil {
			log.Error().Err(err).Msg("text extraction failed")
			return nil, fmt.Errorf("text extraction failed: %w", err)
		}
		rows = TextRows(pages)
		meta.PageCount = len(pages)
		textSeen = pagesText(pages)
	}

	decision := Decide(mode, len(rows), cfg.minTextRows(), cfg.OCREnabled)
	log.Debug().
		Str("mode", string(mode)).
		Int("text_rows", len(rows)).
		Stringer("decision", decision).
		Msg("extraction mode selected")

	switch {
	case mode == models.ModeText, decision == DecisionTextOK:
		meta.ModeUsed = models.ModeText
	case mode == models.ModeOCR, decision == DecisionOCRFallback:
		ocrPages, err := doc.Recognize(ctx, cfg.OCRDPI, cfg.OCRLanguage)
		if err != nil {
			log.Error().Err(err).Msg("OCR failed")
			return nil, fmt.Errorf("OCR failed: %w", err)
		}
		for _, p := range ocrPages {
			if p.Err != nil {
				log.Warn().Err(p.Err).Int("page", p.Number).Msg("OCR failed for page, skipping")
				meta.OCRFailedPages = append(meta.OCRFailedPages, p.Number)
			}
		}
		rows = OCRRows(ocrPages)
		meta.ModeUsed = models.ModeOCR
		meta.PageCount = len(ocrPages)
		textSeen = ocrText(ocrPages)
	default:
		rows = nil
		meta.ModeUsed = models.ModeNone
	}

	describeStatement(&meta, textSeen)

	txns := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		t := r.Transaction()
		t.Currency = meta.Currency
		t.SourceAccount = meta.SourceAccount
		txns = append(txns, t)
	}

	result := &models.ParseResult{
		Totals:       totals.Compute(txns),
		Transactions: txns,
		Metadata:     meta,
	}
	opening, closing := totals.OpeningClosing(txns)
	result.Metadata.BalanceCheck = totals.CheckBalance(opening, closing, result.Totals)
	result.Metadata.TransactionCount = len(txns)

	if bc := result.Metadata.BalanceCheck; bc != nil && !bc.Matches() {
		log.Info().
			Float64("closing", bc.Closing).
			Float64("expected_closing", bc.ExpectedClosing).
			Msg("closing balance does not reconcile")
	}
	return result, nil
}

// describeStatement fills the statement-level metadata found in the text.
func describeStatement(meta *models.Metadata, text string) {
	meta.Institution = DetectInstitution(text)
	meta.SourceAccount = FindAccountNumber(text)
	meta.SortCode = FindSortCode(text)
	meta.Currency = money.DetectCurrency(text)
}

func pagesText(pages []models.Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
