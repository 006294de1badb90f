package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode is an extraction strategy. The zero value means no mode was used.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeText Mode = "text"
	ModeOCR  Mode = "ocr"
	ModeNone Mode = ""
)

// ParseMode validates a user supplied mode. An empty string selects auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeText:
		return ModeText, nil
	case ModeOCR:
		return ModeOCR, nil
	default:
		return ModeNone, fmt.Errorf("unknown mode %q: use auto, text or ocr", s)
	}
}

// MarshalJSON encodes ModeNone as null.
func (m Mode) MarshalJSON() ([]byte, error) {
	if m == ModeNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null as ModeNone.
func (m *Mode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ModeNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = Mode(s)
	return nil
}

// Table is an extracted table: rows of cell strings.
type Table [][]string

// Page is one page as seen by the text extractor.
type Page struct {
	Number int
	Tables []Table
	Text   string
}

// OCRPage is the recognised text of one rendered page. Err is set when
// recognition failed for this page only.
type OCRPage struct {
	Number int
	Text   string
	Err    error
}

// FinancialTotal is a labelled monetary figure found in document prose.
type FinancialTotal struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Currency   string  `json:"currency"`
	LineNumber int     `json:"line_number"`
}

// DocumentMetadata describes a processed upload.
type DocumentMetadata struct {
	FileSize    int64     `json:"file_size"`
	UploadTime  time.Time `json:"upload_time"`
	TextLength  int       `json:"text_length"`
	TotalsCount int       `json:"totals_count"`
}

// DocumentResult is the financial-total scan of a stored upload.
type DocumentResult struct {
	FileID         string           `json:"file_id"`
	Filename       string           `json:"filename"`
	Method         Mode             `json:"method"`
	Text           string           `json:"text"`
	Totals         []FinancialTotal `json:"totals"`
	ProcessingTime float64          `json:"processing_time"`
	Metadata       DocumentMetadata `json:"metadata"`
}
