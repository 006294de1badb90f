// Package extractor reads statement PDFs: the text layer through
// ledongthuc/pdf with poppler's pdftotext as a fallback, and scanned pages
// through pdftoppm and tesseract.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/moneylens/internal/logger"
	"github.com/insightdelivered/moneylens/internal/models"
)

var (
	// ErrNoPages is returned when a document yields no pages at all.
	ErrNoPages = errors.New("PDF has no pages")
	// ErrNotPDF is returned by Open for files that are not PDFs.
	ErrNotPDF = errors.New("not a PDF file")
)

const (
	// cellGap is the horizontal gap, in points, that starts a new cell.
	cellGap = 10.0
	// minTableCells is how many cells a line needs to count as a table row.
	minTableCells = 3
)

// Document is a PDF on disk.
type Document struct {
	path string
}

// Open checks that path names a readable PDF and returns a Document for it.
func Open(path string) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s has no PDF header", ErrNotPDF, filepath.Base(path))
	}
	return &Document{path: path}, nil
}

// Path returns the file the document was opened from.
func (d *Document) Path() string { return d.path }

// Pages returns the text layer of every page. The structured library is
// tried first; when it crashes or yields unreadable text, pdftotext is used.
// A scanned document comes back as pages with empty text, not an error.
func (d *Document) Pages(ctx context.Context) ([]models.Page, error) {
	log := logger.FromContext(ctx)

	pages, libErr := readWithLibrary(d.path)
	if libErr == nil && IsReadableText(pageTexts(pages)) {
		return pages, nil
	}
	if libErr != nil {
		log.Debug().Err(libErr).Str("file", filepath.Base(d.path)).Msg("PDF library failed, trying pdftotext")
	}

	popplerPages, popplerErr := readWithPdftotext(ctx, d.path)
	if popplerErr == nil && IsReadableText(pageTexts(popplerPages)) {
		return popplerPages, nil
	}

	switch {
	case libErr == nil:
		// Opened fine but nothing readable: most likely a scan.
		return blankPages(pages), nil
	case popplerErr == nil:
		return blankPages(popplerPages), nil
	default:
		log.Debug().Err(popplerErr).Msg("pdftotext failed")
		return nil, fmt.Errorf("PDF text extraction failed: %w", libErr)
	}
}

// readWithLibrary lays out every page from its positioned text items. A
// page the library crashes on comes back blank; the document fails only
// when it cannot be opened or no page could be read.
func readWithLibrary(path string) (pages []models.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return collectPages(r.NumPage(), func(i int) models.Page {
		p := r.Page(i)
		if p.V.IsNull() {
			return models.Page{}
		}
		content := p.Content()
		return layoutPage(content.Text, len(content.Rect) > 0)
	})
}

// collectPages reads pages 1..n with read, turning a panic on one page into
// a blank page.
func collectPages(n int, read func(i int) models.Page) ([]models.Page, error) {
	if n == 0 {
		return nil, ErrNoPages
	}
	pages := make([]models.Page, 0, n)
	var (
		failed  int
		lastErr error
	)
	for i := 1; i <= n; i++ {
		page, err := readPage(i, read)
		if err != nil {
			failed++
			lastErr = err
		}
		page.Number = i
		pages = append(pages, page)
	}
	if failed == n {
		return nil, lastErr
	}
	return pages, nil
}

func readPage(i int, read func(i int) models.Page) (page models.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			page = models.Page{}
			err = fmt.Errorf("PDF library crashed on page %d: %v", i, r)
		}
	}()
	return read(i), nil
}

// libraryPageCount returns the page count as seen by the PDF library.
func libraryPageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}

// layoutPage rebuilds lines from positioned text items: items are grouped
// by rounded Y (top to bottom), sorted by X, and split into cells at wide
// gaps. On a ruled page the lines with enough cells form a table.
func layoutPage(items []pdf.Text, ruled bool) models.Page {
	rowMap := make(map[int][]pdf.Text)
	for _, t := range items {
		if t.S == "" {
			continue
		}
		y := int(math.Round(t.Y))
		rowMap[y] = append(rowMap[y], t)
	}

	ys := make([]int, 0, len(rowMap))
	for y := range rowMap {
		ys = append(ys, y)
	}
	// PDF Y grows upwards.
	sort.Sort(sort.Reverse(sort.IntSlice(ys)))

	var (
		lines []string
		table models.Table
	)
	for _, y := range ys {
		cells := splitCells(rowMap[y])
		if len(cells) == 0 {
			continue
		}
		lines = append(lines, strings.Join(cells, "  "))
		if ruled && len(cells) >= minTableCells {
			table = append(table, cells)
		}
	}

	page := models.Page{Text: strings.Join(lines, "\n")}
	if len(table) > 0 {
		page.Tables = []models.Table{table}
	}
	return page
}

// splitCells orders one line's items left to right and joins them into
// cells. A gap wider than cellGap starts a new cell; a gap wider than a
// fraction of the font size becomes a space.
func splitCells(items []pdf.Text) []string {
	sort.SliceStable(items, func(a, b int) bool { return items[a].X < items[b].X })

	var (
		cells []string
		cur   strings.Builder
		end   float64
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			cells = append(cells, strings.Join(strings.Fields(s), " "))
		}
		cur.Reset()
	}
	for i, t := range items {
		if i > 0 {
			gap := t.X - end
			switch {
			case gap > cellGap:
				flush()
			case gap > spaceWidth(t.FontSize):
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)
		end = t.X + t.W
	}
	flush()
	return cells
}

func spaceWidth(fontSize float64) float64 {
	if fontSize <= 0 {
		return 1.5
	}
	return fontSize * 0.15
}

// readWithPdftotext runs pdftotext -layout once per page to keep page
// boundaries.
func readWithPdftotext(ctx context.Context, path string) ([]models.Page, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	n := 1
	if out, err := exec.CommandContext(ctx, "pdfinfo", path).Output(); err == nil {
		if c := parsePageCount(string(out)); c > 0 {
			n = c
		}
	}

	pages := make([]models.Page, 0, n)
	failed := 0
	for i := 1; i <= n; i++ {
		num := strconv.Itoa(i)
		out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", num, "-l", num, path, "-").Output()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			out = nil
		}
		pages = append(pages, models.Page{Number: i, Text: strings.TrimRight(string(out), "\f\n ")})
	}
	if failed == n {
		return nil, fmt.Errorf("pdftotext failed on all %d pages", n)
	}
	return pages, nil
}

// parsePageCount reads the "Pages:" line of pdfinfo output.
func parsePageCount(info string) int {
	for _, line := range strings.Split(info, "\n") {
		if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func pageTexts(pages []models.Page) []string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return texts
}

func blankPages(pages []models.Page) []models.Page {
	out := make([]models.Page, len(pages))
	for i, p := range pages {
		out[i] = models.Page{Number: p.Number}
	}
	return out
}

// commonWords appear in virtually every statement or invoice. Text with
// none of them is most likely undecoded font garbage.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "sort code",
	"money", "paid", "opening", "closing", "transfer", "direct",
	"number", "page", "period", "invoice", "tax",
}

// IsReadableText reports whether pages hold real text: more than 50
// characters, mostly plain ASCII, and at least one common statement word.
func IsReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

// textQuality returns the share of plain ASCII letters, digits, spaces and
// punctuation among all characters of pages.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsPrint(r) || unicode.IsSpace(r)) ||
				strings.ContainsRune("£€₹¥", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func containsCommonWords(pages []string) bool {
	// Matchers keep per-search state, so each call builds its own.
	m := ahocorasick.NewStringMatcher(commonWords)
	for _, p := range pages {
		if len(m.Match([]byte(strings.ToLower(p)))) > 0 {
			return true
		}
	}
	return false
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
