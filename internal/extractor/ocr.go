package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/insightdelivered/moneylens/internal/logger"
	"github.com/insightdelivered/moneylens/internal/models"
)

// ErrOCRUnavailable is returned when pdftoppm or tesseract is not installed.
var ErrOCRUnavailable = errors.New("OCR tools not available")

const imagePrefix = "page"

// IsOCRAvailable reports whether both pdftoppm (poppler-utils) and
// tesseract are on PATH.
func IsOCRAvailable() bool {
	return checkOCRTools() == nil
}

func checkOCRTools() error {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return fmt.Errorf("%w: pdftoppm (install poppler-utils): %v", ErrOCRUnavailable, err)
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return fmt.Errorf("%w: tesseract (install tesseract-ocr): %v", ErrOCRUnavailable, err)
	}
	return nil
}

// Recognize renders each page at dpi and runs tesseract on it. A page that
// fails to render or recognise is returned with Err set and the other pages
// carry on; only a document with no renderable page at all is an error.
func (d *Document) Recognize(ctx context.Context, dpi int, language string) ([]models.OCRPage, error) {
	log := logger.FromContext(ctx)

	if err := checkOCRTools(); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 300
	}
	if language == "" {
		language = "eng"
	}

	n, err := pageCount(ctx, d.path)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "moneylens-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pages := make([]models.OCRPage, 0, n)
	var lastRenderErr error
	rendered := 0
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := renderPage(ctx, d.path, i, dpi, tmpDir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("page", i).Msg("pdftoppm failed")
			lastRenderErr = err
			pages = append(pages, models.OCRPage{Number: i, Err: err})
			continue
		}
		rendered++

		// PSM 4: a single column of text of variable sizes.
		out, err := exec.CommandContext(ctx, "tesseract", img, "stdout", "-l", language, "--psm", "4").Output()
		os.Remove(img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("page", i).Msg("tesseract failed")
			pages = append(pages, models.OCRPage{Number: i, Err: fmt.Errorf("tesseract: %w", err)})
			continue
		}
		pages = append(pages, models.OCRPage{Number: i, Text: strings.TrimSpace(string(out))})
	}
	if rendered == 0 {
		return nil, fmt.Errorf("no page could be rendered: %w", lastRenderErr)
	}
	return pages, nil
}

// renderPage writes page i of path as a PNG into dir and returns its path.
func renderPage(ctx context.Context, path string, i, dpi int, dir string) (string, error) {
	num := strconv.Itoa(i)
	prefix := filepath.Join(dir, imagePrefix+"-"+num)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", num, "-l", num, "-r", strconv.Itoa(dpi), "-png", "-singlefile", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w (output: %s)", i, err, strings.TrimSpace(string(out)))
	}
	img := prefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return "", fmt.Errorf("pdftoppm page %d wrote no image: %w", i, err)
	}
	return img, nil
}

// pageCount asks pdfinfo for the number of pages and falls back to the PDF
// library when pdfinfo is missing or says nothing.
func pageCount(ctx context.Context, path string) (int, error) {
	if out, err := exec.CommandContext(ctx, "pdfinfo", path).Output(); err == nil {
		if n := parsePageCount(string(out)); n > 0 {
			return n, nil
		}
	}
	n, err := libraryPageCount(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	if n == 0 {
		return 0, ErrNoPages
	}
	return n, nil
}
