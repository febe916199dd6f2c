// Package vertical extracts text from PDFs whose layout defeats standard
// extraction: top-to-bottom, right-to-left Japanese script. Pages are
// rasterized with pdftoppm and recognized with tesseract's jpn_vert model.
//
// Extraction never fails past its own boundary: every failure mode is
// reported through the Result so callers can fall back on data alone.
package vertical

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Result is the full outcome of one extraction attempt.
type Result struct {
	Success   bool
	Text      string
	Pages     []string
	PageCount int
	Err       string
}

// Extractor recognizes text from an image-bearing PDF.
type Extractor interface {
	ExtractPDF(ctx context.Context, path string) Result
}

// TesseractExtractor shells out to pdftoppm and tesseract.
type TesseractExtractor struct {
	Lang          string
	DPI           int
	CleanText     bool
	TesseractPath string // resolved from PATH when empty
	PDFToPPMPath  string // resolved from PATH when empty
}

// New returns an extractor tuned for vertical Japanese.
func New(lang string, dpi int) *TesseractExtractor {
	if lang == "" {
		lang = "jpn_vert"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &TesseractExtractor{Lang: lang, DPI: dpi, CleanText: true}
}

// ExtractPDF rasterizes each page and runs OCR on it. All errors are folded
// into the returned Result.
func (e *TesseractExtractor) ExtractPDF(ctx context.Context, path string) Result {
	tesseract, err := e.resolve(e.TesseractPath, "tesseract")
	if err != nil {
		return failure("tesseract OCR is not installed or not found in PATH")
	}
	pdftoppm, err := e.resolve(e.PDFToPPMPath, "pdftoppm")
	if err != nil {
		return failure("pdftoppm is not installed or not found in PATH")
	}

	tmp, err := os.MkdirTemp("", "vertical-ocr-*")
	if err != nil {
		return failure(fmt.Sprintf("failed to create working directory: %v", err))
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "page")
	cmd := exec.CommandContext(ctx, pdftoppm, "-r", strconv.Itoa(e.DPI), "-png", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return failure(fmt.Sprintf("pdf rasterization failed: %v: %s", err, bytes.TrimSpace(out)))
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(images) == 0 {
		return failure("pdf rasterization produced no pages")
	}
	// pdftoppm zero-pads page numbers, lexical order is page order
	sort.Strings(images)

	pages := make([]string, 0, len(images))
	var combined strings.Builder
	for i, img := range images {
		out, err := exec.CommandContext(ctx, tesseract, img, "stdout", "-l", e.Lang, "--psm", "5").Output()
		if err != nil {
			return failure(fmt.Sprintf("OCR failed on page %d: %v", i+1, err))
		}
		text := string(out)
		if e.CleanText {
			text = CleanJapaneseText(text)
		}
		pages = append(pages, text)
		fmt.Fprintf(&combined, "--- Page %d ---\n%s\n", i+1, text)
	}

	text := combined.String()
	if strings.TrimSpace(stripPageMarkers(text)) == "" {
		return failure("OCR produced no text")
	}

	log.Debug().Str("file", path).Int("pages", len(pages)).Msg("vertical OCR extraction complete")
	return Result{Success: true, Text: text, Pages: pages, PageCount: len(pages)}
}

func (e *TesseractExtractor) resolve(configured, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return exec.LookPath(name)
}

func failure(msg string) Result {
	return Result{Err: msg}
}

var (
	spaceRe      = regexp.MustCompile(`\s+`)
	pageMarkerRe = regexp.MustCompile(`--- Page \d+ ---`)
)

// CleanJapaneseText collapses the spurious whitespace OCR inserts between
// Japanese characters and normalizes common misreads.
func CleanJapaneseText(text string) string {
	text = spaceRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "O", "〇")
	return text
}

func stripPageMarkers(text string) string {
	return pageMarkerRe.ReplaceAllString(text, "")
}
