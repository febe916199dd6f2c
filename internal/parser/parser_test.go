package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/models"
	"github.com/Github-Rajesh/Japanese-Chatbot-render/internal/vertical"
)

// fakeExtractor lets tests drive the loader's fallback logic.
type fakeExtractor struct {
	result vertical.Result
	calls  int
}

func (f *fakeExtractor) ExtractPDF(_ context.Context, _ string) vertical.Result {
	f.calls++
	return f.result
}

func writeXLSX(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, val := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, cell, val))
			}
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := NewLoader(nil)
	_, err := l.Load(context.Background(), "report.docx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load(context.Background(), "notes.txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIsVerticalPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"kb/Vertical writing/contract.pdf", true},
		{"kb/Verticle writing/contract.pdf", true}, // the original corpus misspelling
		{"kb/VERTICAL WRITING/doc.pdf", true},
		{"kb/standard/contract.pdf", false},
		{"vertical.pdf", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsVerticalPath(tc.path), tc.path)
	}
}

func TestLoadXLSXStructured(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "codes.xlsx")
	writeXLSX(t, path, map[string][][]string{
		"規定一覧": {
			{"項目", "等級"},
			{"耐震等級", "3"},
		},
	})

	l := NewLoader(nil)
	units, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, path, units[0].Source)
	require.Equal(t, "規定一覧", units[0].Extra[models.MetaSheet])
	require.Contains(t, units[0].Text, "## Sheet: 規定一覧")
	require.Contains(t, units[0].Text, "耐震等級\t3")
	require.Zero(t, units[0].Page)
}

func TestLoadXLSXSkipsEmptySheets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.xlsx")
	writeXLSX(t, path, map[string][][]string{
		"空シート": nil,
		"データ":  {{"耐震等級", "3"}},
	})

	l := NewLoader(nil)
	units, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "データ", units[0].Extra[models.MetaSheet])

	blank := filepath.Join(dir, "blank.xlsx")
	writeXLSX(t, blank, map[string][][]string{"空": nil})
	units, err = l.Load(context.Background(), blank)
	require.NoError(t, err)
	require.Empty(t, units)
}

func TestLoadXLSXMultipleSheetsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multi.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "first"))
	_, err := f.NewSheet("second")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("first", "A1", "alpha"))
	require.NoError(t, f.SetCellValue("second", "A1", "beta"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l := NewLoader(nil)
	units, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 2)
	require.Contains(t, units[0].Text, "alpha")
	require.Contains(t, units[1].Text, "beta")
}

func TestLoadXLSXUnopenable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a spreadsheet"), 0o644))

	l := NewLoader(nil)
	_, err := l.Load(context.Background(), path)
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestLoadCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-garbage"), 0o644))

	l := NewLoader(nil)
	_, err := l.Load(context.Background(), path)
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestVerticalPDFUsesExtractorResult(t *testing.T) {
	ex := &fakeExtractor{result: vertical.Result{
		Success:   true,
		Pages:     []string{"一ページ目", "", "三ページ目"},
		PageCount: 3,
	}}
	l := NewLoader(ex)

	units, err := l.Load(context.Background(), "kb/Vertical writing/old-contract.pdf")
	require.NoError(t, err)
	require.Equal(t, 1, ex.calls)
	require.Len(t, units, 2) // the empty page is dropped
	require.Equal(t, 1, units[0].Page)
	require.Equal(t, 3, units[1].Page)
	require.Equal(t, models.TypeVerticalJapanese, units[0].Extra[models.MetaType])
	require.Equal(t, "3", units[0].Extra[models.MetaTotalPages])
}

func TestVerticalPDFFailureFallsBackToStandardLoader(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Verticle writing")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a real pdf"), 0o644))

	ex := &fakeExtractor{result: vertical.Result{Success: false, Err: "tesseract missing"}}
	l := NewLoader(ex)

	_, err := l.Load(context.Background(), path)
	// the standard loader's failure surfaces, never the OCR one
	require.Equal(t, 1, ex.calls)
	require.ErrorIs(t, err, ErrExtractionFailed)
	require.False(t, strings.Contains(err.Error(), "tesseract"), "OCR failure must not propagate")
}

func TestVerticalPDFEmptyPagesFallBack(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Vertical writing")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	path := filepath.Join(sub, "blank.pdf")
	require.NoError(t, os.WriteFile(path, []byte("still not a pdf"), 0o644))

	ex := &fakeExtractor{result: vertical.Result{Success: true, Pages: []string{"", "  "}, PageCount: 2}}
	l := NewLoader(ex)

	_, err := l.Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExtractionFailed))
}
