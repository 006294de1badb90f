package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/moneylens/internal/models"
)

func writePDF(t *testing.T, content string) *Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	doc, err := Open(path)
	require.NoError(t, err)
	return doc
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	t.Run("valid header", func(t *testing.T) {
		p := write("ok.PDF", "%PDF-1.7\n...")
		doc, err := Open(p)
		require.NoError(t, err)
		assert.Equal(t, p, doc.Path())
	})

	t.Run("wrong extension", func(t *testing.T) {
		_, err := Open(write("statement.txt", "%PDF-1.7"))
		assert.ErrorIs(t, err, ErrNotPDF)
	})

	t.Run("no header", func(t *testing.T) {
		_, err := Open(write("fake.pdf", "hello world"))
		assert.ErrorIs(t, err, ErrNotPDF)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := Open(write("short.pdf", "%P"))
		assert.ErrorIs(t, err, ErrNotPDF)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.pdf"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotPDF)
	})
}

func TestPages_Unreadable(t *testing.T) {
	doc := writePDF(t, "%PDF-1.4\nthis is not a real document")
	t.Setenv("PATH", "")

	_, err := doc.Pages(context.Background())
	assert.Error(t, err)
}

func TestLayoutPage(t *testing.T) {
	// Two lines of single-character items plus word items, as the library
	// reports them.
	items := []pdf.Text{
		{X: 200, Y: 700, W: 30, FontSize: 10, S: "25.99"},
		{X: 20, Y: 700, W: 50, FontSize: 10, S: "15/01/2024"},
		{X: 90, Y: 700.2, W: 5, FontSize: 10, S: "T"},
		{X: 95, Y: 700, W: 5, FontSize: 10, S: "E"},
		{X: 100, Y: 700, W: 5, FontSize: 10, S: "S"},
		{X: 105, Y: 700, W: 5, FontSize: 10, S: "C"},
		{X: 110, Y: 700, W: 5, FontSize: 10, S: "O"},
		{X: 118, Y: 700, W: 20, FontSize: 10, S: "STORE"},
		{X: 20, Y: 650, W: 40, FontSize: 10, S: "Page 1"},
		{X: 20, Y: 600, W: 40, FontSize: 10, S: ""},
	}

	t.Run("plain page", func(t *testing.T) {
		page := layoutPage(items, false)
		assert.Equal(t, "15/01/2024  TESCO STORE  25.99\nPage 1", page.Text)
		assert.Empty(t, page.Tables)
	})

	t.Run("ruled page", func(t *testing.T) {
		page := layoutPage(items, true)
		require.Len(t, page.Tables, 1)
		assert.Equal(t, models.Table{{"15/01/2024", "TESCO STORE", "25.99"}}, page.Tables[0])
	})
}

func TestParsePageCount(t *testing.T) {
	info := "Title:          Statement\nProducer:       x\nPages:          12\nEncrypted:      no\n"
	assert.Equal(t, 12, parsePageCount(info))
	assert.Equal(t, 0, parsePageCount("Pages: many"))
	assert.Equal(t, 0, parsePageCount(""))
}

func TestIsReadableText(t *testing.T) {
	statement := "Account Statement\n15/01/2024  CARD PAYMENT  25.99\n16/01/2024  SALARY  2,500.00"

	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"statement", []string{statement}, true},
		{"split across pages", []string{"Opening Balance 100.00 carried from last month", "BANK 42"}, true},
		{"too short", []string{"Balance 10.00"}, false},
		{"no known words", []string{strings.Repeat("lorem ipsum dolor sit amet ", 3)}, false},
		{"garbage", []string{strings.Repeat("ÿþýüûúùø÷ balance ", 10)}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadableText(tt.pages))
		})
	}
}

func TestCollectPages(t *testing.T) {
	read := func(crash ...int) func(int) models.Page {
		return func(i int) models.Page {
			for _, c := range crash {
				if c == i {
					panic("malformed content stream")
				}
			}
			return models.Page{Text: "page text"}
		}
	}

	t.Run("one crashing page is blank", func(t *testing.T) {
		pages, err := collectPages(3, read(2))
		require.NoError(t, err)
		require.Len(t, pages, 3)
		assert.Equal(t, models.Page{Number: 1, Text: "page text"}, pages[0])
		assert.Equal(t, models.Page{Number: 2}, pages[1])
		assert.Equal(t, models.Page{Number: 3, Text: "page text"}, pages[2])
	})

	t.Run("every page crashes", func(t *testing.T) {
		_, err := collectPages(2, read(1, 2))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed content stream")
	})

	t.Run("no pages", func(t *testing.T) {
		_, err := collectPages(0, read())
		assert.ErrorIs(t, err, ErrNoPages)
	})
}
