// Package parser converts source files into ordered content units with
// provenance metadata. Recognized formats are PDF and XLSX; PDFs under a
// vertical-writing folder are routed through the OCR extractor first.
package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/vertical"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the loader does
	// not recognize.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed is returned when a recognized format cannot be
	// parsed. Batch callers log and skip the document.
	ErrExtractionFailed = errors.New("document extraction failed")
)

// Loader turns one source file into content units.
type Loader struct {
	vertical vertical.Extractor // nil disables the OCR path
}

// NewLoader creates a loader. The vertical extractor may be nil, in which
// case vertically written PDFs go through the standard path.
func NewLoader(v vertical.Extractor) *Loader {
	return &Loader{vertical: v}
}

// Load returns the ordered content units of the file at path.
func (l *Loader) Load(ctx context.Context, path string) ([]models.ContentUnit, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		if IsVerticalPath(path) {
			return l.loadVerticalPDF(ctx, path)
		}
		return loadPDF(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// IsVerticalPath reports whether the path marks the document as vertically
// written. Both spellings occur in real corpora, the misspelled one included.
func IsVerticalPath(path string) bool {
	p := strings.ToLower(filepath.ToSlash(path))
	return strings.Contains(p, "vertical writing") || strings.Contains(p, "verticle writing")
}

// loadVerticalPDF tries the OCR extractor and falls back to the standard
// path on any unsuccessful result. The OCR failure never reaches the caller.
func (l *Loader) loadVerticalPDF(ctx context.Context, path string) ([]models.ContentUnit, error) {
	if l.vertical == nil {
		log.Warn().Str("file", path).Msg("vertical extractor not configured, using standard loader")
		return loadPDF(path)
	}

	res := l.vertical.ExtractPDF(ctx, path)
	if !res.Success {
		log.Warn().Str("file", path).Str("reason", res.Err).Msg("vertical OCR failed, falling back to standard loader")
		return loadPDF(path)
	}

	var units []models.ContentUnit
	for i, pageText := range res.Pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		units = append(units, models.ContentUnit{
			Text:   pageText,
			Source: path,
			Page:   i + 1,
			Extra: map[string]string{
				models.MetaType:       models.TypeVerticalJapanese,
				models.MetaTotalPages: strconv.Itoa(res.PageCount),
			},
		})
	}
	if len(units) == 0 {
		log.Warn().Str("file", path).Msg("vertical OCR returned only empty pages, falling back to standard loader")
		return loadPDF(path)
	}
	return units, nil
}

// loadPDF extracts text page by page, preserving page numbers. A page whose
// extraction fails is emitted empty so the document is not dropped.
func loadPDF(path string) (units []models.ContentUnit, err error) {
	// the pdf library panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fmt.Errorf("%w: pdf reader panic: %v", ErrExtractionFailed, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			log.Warn().Str("file", path).Int("page", i).Err(perr).Msg("page text extraction failed")
			text = ""
		}
		units = append(units, models.ContentUnit{Text: text, Source: path, Page: i})
	}
	return units, nil
}

// loadXLSX prefers the structured sheet loader and falls back to a plain
// row-to-text serialization. Only a spreadsheet neither library can open
// fails the whole file.
func loadXLSX(path string) ([]models.ContentUnit, error) {
	units, err := loadXLSXStructured(path)
	if err == nil {
		return units, nil
	}
	log.Warn().Str("file", path).Err(err).Msg("structured spreadsheet load failed, trying row fallback")

	units, ferr := loadXLSXRows(path)
	if ferr != nil {
		return nil, fmt.Errorf("%w: %v (row fallback: %v)", ErrExtractionFailed, err, ferr)
	}
	return units, nil
}

func loadXLSXStructured(path string) ([]models.ContentUnit, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var units []models.ContentUnit
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "## Sheet: %s\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
		units = append(units, models.ContentUnit{
			Text:   b.String(),
			Source: path,
			Extra:  map[string]string{models.MetaSheet: sheet},
		})
	}
	return units, nil
}

func loadXLSXRows(path string) ([]models.ContentUnit, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}

	var units []models.ContentUnit
	for _, sheet := range f.Sheets {
		if len(sheet.Rows) == 0 {
			continue
		}
		var b strings.Builder
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			b.WriteString(strings.Join(cells, ","))
			b.WriteString("\n")
		}
		units = append(units, models.ContentUnit{
			Text:   b.String(),
			Source: path,
			Extra:  map[string]string{models.MetaSheet: sheet.Name},
		})
	}
	return units, nil
}
