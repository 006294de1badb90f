package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/moneylens/internal/config"
	"github.com/insightdelivered/moneylens/internal/extractor"
	"github.com/insightdelivered/moneylens/internal/metrics"
	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/parser"
	"github.com/insightdelivered/moneylens/internal/storage"
	"github.com/insightdelivered/moneylens/internal/writer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Opener opens a stored PDF for parsing.
type Opener func(path string) (parser.Document, error)

// OpenPDF opens path with the PDF extractor.
func OpenPDF(path string) (parser.Document, error) {
	doc, err := extractor.Open(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	Config  *config.Config
	Store   *storage.FileStore
	Metrics *metrics.Recorder
	Log     zerolog.Logger
	Version string

	// Open defaults to OpenPDF.
	Open Opener
}

// UploadResponse is returned by /upload.
type UploadResponse struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"upload_time"`
}

// FileSummary is one entry of /files.
type FileSummary struct {
	FileID         string      `json:"file_id"`
	Filename       string      `json:"filename"`
	UploadTime     time.Time   `json:"upload_time"`
	ProcessingTime float64     `json:"processing_time"`
	TotalsCount    int         `json:"totals_count"`
	Method         models.Mode `json:"text_extraction_method"`
}

// ExportRequest selects stored results for the totals and summary exports.
type ExportRequest struct {
	FileIDs         []string `json:"file_ids"`
	IncludeText     bool     `json:"include_text"`
	IncludeMetadata bool     `json:"include_metadata"`
}

type transactionsRequest struct {
	Transactions []models.Transaction `json:"transactions"`
}

func (h *Handler) open(path string) (parser.Document, error) {
	if h.Open != nil {
		return h.Open(path)
	}
	return OpenPDF(path)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"timestamp":     time.Now().UTC(),
		"version":       h.Version,
		"ocr_enabled":   h.Config.OCR.Enabled,
		"ocr_available": extractor.IsOCRAvailable(),
	})
}

func (h *Handler) HandleVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"version": h.Version})
}

// HandleParsePDF parses an uploaded statement and returns its ParseResult.
func (h *Handler) HandleParsePDF(c *fiber.Ctx) error {
	mode, err := models.ParseMode(c.FormValue("mode"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !isPDFName(fh.Filename) {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	tmp, err := os.CreateTemp("", "moneylens-*.pdf")
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create temp file.")
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := c.SaveFile(fh, tmp.Name()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}

	doc, err := h.open(tmp.Name())
	if err != nil {
		h.Metrics.ObserveFailure(metrics.OpStatement)
		return openError(err)
	}

	start := time.Now()
	res, err := parser.Parse(c.UserContext(), doc, mode, h.Config.Parser())
	if err != nil {
		h.Metrics.ObserveFailure(metrics.OpStatement)
		return parseError(err)
	}
	h.Metrics.ObserveStatement(res, time.Since(start))
	return c.JSON(res)
}

// HandleExportCSV turns posted transactions into a CSV download.
func (h *Handler) HandleExportCSV(c *fiber.Ctx) error {
	var req transactionsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	var buf bytes.Buffer
	if err := writer.WriteTransactions(&buf, req.Transactions); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}
	c.Attachment("moneylens_transactions.csv")
	return c.Send(buf.Bytes())
}

// HandleExportXLSX turns a posted ParseResult into a workbook download.
func (h *Handler) HandleExportXLSX(c *fiber.Ctx) error {
	var res models.ParseResult
	if err := c.BodyParser(&res); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	var buf bytes.Buffer
	if err := writer.WriteXLSX(&buf, &res); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("XLSX generation failed: %v", err))
	}
	c.Attachment("moneylens_transactions.xlsx")
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(buf.Bytes())
}

// HandleUpload stores a PDF for later processing.
func (h *Handler) HandleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !isPDFName(fh.Filename) {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files are allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read uploaded file.")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read uploaded file.")
	}

	info, err := h.Store.Save(content, fh.Filename)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to upload file: %v", err))
	}
	return c.JSON(UploadResponse{
		FileID:     info.ID,
		Filename:   info.Filename,
		Size:       info.Size,
		UploadTime: info.UploadTime,
	})
}

// HandleProcess scans a stored PDF for financial totals and keeps the result.
func (h *Handler) HandleProcess(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("id"))
	info, err := h.Store.Get(id)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "File not found")
	}
	path, err := h.Store.Path(id)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "File not found")
	}

	doc, err := h.open(path)
	if err != nil {
		h.Metrics.ObserveFailure(metrics.OpDocument)
		return openError(err)
	}
	res, err := parser.Scan(c.UserContext(), doc, h.Config.Parser())
	if err != nil {
		h.Metrics.ObserveFailure(metrics.OpDocument)
		return parseError(err)
	}

	res.FileID = id
	res.Filename = info.Filename
	res.Metadata.FileSize = info.Size
	res.Metadata.UploadTime = info.UploadTime
	if err := h.Store.SaveResult(id, res); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to process file: %v", err))
	}
	h.Metrics.ObserveDocument(res, time.Duration(res.ProcessingTime*float64(time.Second)))
	return c.JSON(res)
}

func (h *Handler) HandleResult(c *fiber.Ctx) error {
	res, err := h.Store.Result(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Parse result not found. File may not have been processed yet.")
	}
	return c.JSON(res)
}

func (h *Handler) HandleListFiles(c *fiber.Ctx) error {
	processed := h.Store.Processed()
	files := make([]FileSummary, 0, len(processed))
	for _, info := range processed {
		files = append(files, FileSummary{
			FileID:         info.ID,
			Filename:       info.Filename,
			UploadTime:     info.UploadTime,
			ProcessingTime: info.Result.ProcessingTime,
			TotalsCount:    len(info.Result.Totals),
			Method:         info.Result.Method,
		})
	}
	return c.JSON(fiber.Map{"files": files})
}

func (h *Handler) HandleDeleteFile(c *fiber.Ctx) error {
	if err := h.Store.Delete(c.Params("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "File not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"message": "File deleted successfully"})
}

// HandleExportTotals writes one CSV row per detected total of the
// requested files. Unknown or unprocessed IDs are skipped.
func (h *Handler) HandleExportTotals(c *fiber.Ctx) error {
	var req ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	var buf bytes.Buffer
	if err := writer.WriteTotals(&buf, h.results(req.FileIDs), req.IncludeText, req.IncludeMetadata); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to export CSV: %v", err))
	}
	c.Attachment(fmt.Sprintf("moneylens_export_%s.csv", time.Now().UTC().Format("20060102_150405")))
	return c.Send(buf.Bytes())
}

// HandleExportSummary writes one CSV row per file. Without file_ids every
// processed file is included.
func (h *Handler) HandleExportSummary(c *fiber.Ctx) error {
	var req ExportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		}
	}

	ids := req.FileIDs
	if len(ids) == 0 {
		for _, info := range h.Store.Processed() {
			ids = append(ids, info.ID)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteSummary(&buf, h.results(ids)); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to export summary CSV: %v", err))
	}
	c.Attachment(fmt.Sprintf("moneylens_summary_%s.csv", time.Now().UTC().Format("20060102_150405")))
	return c.Send(buf.Bytes())
}

func (h *Handler) results(ids []string) []models.DocumentResult {
	docs := make([]models.DocumentResult, 0, len(ids))
	for _, id := range ids {
		res, err := h.Store.Result(id)
		if err != nil {
			continue
		}
		docs = append(docs, *res)
	}
	return docs
}

func isPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func openError(err error) error {
	if errors.Is(err, extractor.ErrNotPDF) {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}
	return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF could not be opened: %v", err))
}

func parseError(err error) error {
	switch {
	case errors.Is(err, parser.ErrOCRDisabled):
		return fiber.NewError(fiber.StatusBadRequest, "OCR mode requested but OCR is disabled.")
	case errors.Is(err, extractor.ErrOCRUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "OCR tools are not installed on the server.")
	default:
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}
}
