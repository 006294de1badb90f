package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/moneylens/internal/api"
	"github.com/insightdelivered/moneylens/internal/config"
	"github.com/insightdelivered/moneylens/internal/extractor"
	"github.com/insightdelivered/moneylens/internal/logger"
	"github.com/insightdelivered/moneylens/internal/metrics"
	"github.com/insightdelivered/moneylens/internal/models"
	"github.com/insightdelivered/moneylens/internal/parser"
	"github.com/insightdelivered/moneylens/internal/storage"
	"github.com/insightdelivered/moneylens/internal/writer"
)

const version = "1.0.0"

type options struct {
	mode    models.Mode
	output  string
	format  string
	summary bool
	totals  bool
}

// report is what one input produced, printed once all files are done.
type report struct {
	input  string
	output string
	lines  []string
}

func main() {
	modeFlag := flag.String("mode", "auto", "Extraction mode: auto, text or ocr")
	outputFlag := flag.String("output", "", "Output file path (defaults to the input filename with the format's extension)")
	formatFlag := flag.String("format", "csv", "Output format: csv, json or xlsx")
	summaryFlag := flag.Bool("summary", true, "Include summary rows above the CSV header")
	totalsFlag := flag.Bool("totals", false, "Scan for financial totals (invoices, receipts) instead of transactions")
	workersFlag := flag.Int("workers", runtime.NumCPU(), "Maximum number of files parsed at once")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of converting files")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `MoneyLens statement parser
by Insight Delivered

Turns bank statement PDFs into transactions with inflow, outflow and net
totals. Digital statements are read from their text layer; scanned ones
fall back to OCR (poppler and tesseract must be installed).

Usage:
  moneylens [flags] <statement.pdf> [statement2.pdf ...]
  moneylens -serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Parse a statement, choosing text or OCR automatically
  moneylens statement.pdf

  # Force OCR and write JSON
  moneylens -mode=ocr -format=json scan.pdf

  # Workbook with a summary sheet
  moneylens -format=xlsx -output=march.xlsx march.pdf

  # Convert a batch, four files at a time
  moneylens -workers=4 jan.pdf feb.pdf mar.pdf

  # Financial totals of invoices
  moneylens -totals invoice1.pdf invoice2.pdf

Environment:
  ML_OCR_ENABLED, ML_OCR_DPI, ML_OCR_LANGUAGE, ML_MIN_TEXT_ROWS, ML_LOG_LEVEL
  and, for -serve, ML_HOST, ML_PORT, ML_ALLOWED_ORIGINS, ML_MAX_UPLOAD_MB,
  ML_UPLOAD_DIR, ML_RETENTION_DAYS, ML_CLEANUP_SCHEDULE. A .env file in the
  working directory is read when present.
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("moneylens v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}
	log := logger.New(cfg.LogLevel)

	if *serveFlag {
		if err := serve(cfg, log); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	mode, err := models.ParseMode(*modeFlag)
	if err != nil {
		fatalf("%v\n", err)
	}
	format := strings.ToLower(*formatFlag)
	switch format {
	case "csv", "json", "xlsx":
	default:
		fatalf("Unknown format %q. Supported: csv, json, xlsx\n", *formatFlag)
	}
	if *totalsFlag && format == "xlsx" {
		fatalf("-totals supports csv and json output only\n")
	}

	inputFiles := flag.Args()
	if *outputFlag != "" && len(inputFiles) > 1 {
		fatalf("-output can only be used with a single input file\n")
	}

	opts := options{
		mode:    mode,
		output:  *outputFlag,
		format:  format,
		summary: *summaryFlag,
		totals:  *totalsFlag,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	reports := make([]report, len(inputFiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workersFlag, 1))
	for i, inputPath := range inputFiles {
		g.Go(func() error {
			r, err := processFile(gctx, inputPath, cfg.Parser(), opts)
			if err != nil {
				return fmt.Errorf("%s: %w", inputPath, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("Error processing %v\n", err)
	}

	for _, r := range reports {
		fmt.Printf("Processed: %s\n", r.input)
		for _, line := range r.lines {
			fmt.Printf("  %s\n", line)
		}
		fmt.Printf("  Output: %s\n", r.output)
	}
}

func processFile(ctx context.Context, inputPath string, pcfg parser.Config, opts options) (report, error) {
	r := report{input: inputPath, output: opts.output}
	if r.output == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		r.output = base + "." + opts.format
	}

	doc, err := extractor.Open(inputPath)
	if err != nil {
		return r, err
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("file", inputPath).Msg("parsing")

	if opts.totals {
		res, err := parser.Scan(ctx, doc, pcfg)
		if err != nil {
			return r, err
		}
		res.Filename = filepath.Base(inputPath)
		r.lines = append(r.lines, fmt.Sprintf("Text read by %s, %d total(s) found", res.Method, len(res.Totals)))
		if len(res.Totals) > 0 {
			top := res.Totals[0]
			r.lines = append(r.lines, fmt.Sprintf("Highest: %s %.2f %s", top.Label, top.Value, top.Currency))
		}
		return r, writeOutput(r.output, func(f *os.File) error {
			if opts.format == "json" {
				return encodeJSON(f, res)
			}
			return writer.WriteTotals(f, []models.DocumentResult{*res}, false, true)
		})
	}

	res, err := parser.Parse(ctx, doc, opts.mode, pcfg)
	if err != nil {
		return r, fmt.Errorf("parsing failed: %w", err)
	}

	meta := res.Metadata
	switch meta.ModeUsed {
	case models.ModeNone:
		r.lines = append(r.lines, "No text layer found and OCR is disabled (ML_OCR_ENABLED=false)")
	default:
		r.lines = append(r.lines, fmt.Sprintf("Read %d page(s) using %s", meta.PageCount, meta.ModeUsed))
	}
	if len(meta.OCRFailedPages) > 0 {
		r.lines = append(r.lines, fmt.Sprintf("Warning: OCR failed on page(s) %v", meta.OCRFailedPages))
	}
	r.lines = append(r.lines, fmt.Sprintf("Found %d transaction(s)", meta.TransactionCount))
	if meta.TransactionCount == 0 && meta.ModeUsed != models.ModeNone {
		r.lines = append(r.lines, "Warning: No transactions found. Try -mode=ocr if the statement is a scan.")
	}
	r.lines = append(r.lines, fmt.Sprintf("Inflow %.2f, outflow %.2f, net %.2f", res.Totals.Inflow, res.Totals.Outflow, res.Totals.Net))
	if meta.Institution != "" {
		r.lines = append(r.lines, "Institution: "+meta.Institution)
	}
	if meta.SourceAccount != "" {
		r.lines = append(r.lines, "Account number: "+meta.SourceAccount)
	}
	if bc := meta.BalanceCheck; bc != nil && !bc.Matches() {
		r.lines = append(r.lines, fmt.Sprintf("Warning: closing balance %.2f differs from expected %.2f", bc.Closing, bc.ExpectedClosing))
	}

	switch opts.format {
	case "json":
		err = writeOutput(r.output, func(f *os.File) error { return encodeJSON(f, res) })
	case "xlsx":
		err = writeOutput(r.output, func(f *os.File) error { return writer.WriteXLSX(f, res) })
	default:
		w := &writer.CSVWriter{IncludeSummary: opts.summary}
		err = w.WriteToFile(r.output, res)
	}
	if err != nil {
		return r, fmt.Errorf("%s write failed: %w", strings.ToUpper(opts.format), err)
	}
	return r, nil
}

func writeOutput(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeJSON(f *os.File, v any) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(cfg *config.Config, log zerolog.Logger) error {
	store, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	cleanup, err := storage.NewCleanupScheduler(store, cfg.Storage.CleanupSchedule, cfg.Storage.Retention(), log)
	if err != nil {
		return err
	}

	h := &api.Handler{
		Config:  cfg,
		Store:   store,
		Metrics: metrics.New(),
		Log:     log,
		Version: version,
		Open:    api.OpenPDF,
	}
	app := api.NewApp(h)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup.Start()
	defer cleanup.Stop()

	if !extractor.IsOCRAvailable() && cfg.OCR.Enabled {
		log.Warn().Msg("OCR is enabled but pdftoppm or tesseract is missing; scanned statements will fail")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr()).Str("upload_dir", store.Dir()).Msg("listening")
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
