package core

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the name of the single worksheet written by the exporter.
const ExportSheet = "Products"

// ExportTimeLayout formats the UTC timestamp in export file names.
const ExportTimeLayout = "2006-01-02_15-04-05"

// XLSXContentType is the MIME type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SpreadsheetWriter serializes products with the same header contract the
// reader accepts.
type SpreadsheetWriter struct {
	registry *SchemaRegistry
}

// NewSpreadsheetWriter creates a writer bound to a registry snapshot.
func NewSpreadsheetWriter(registry *SchemaRegistry) *SpreadsheetWriter {
	return &SpreadsheetWriter{registry: registry}
}

// Headers returns the header row: required columns then attribute columns,
// each suffixed with HeaderSeparator.
func (w *SpreadsheetWriter) Headers() []string {
	cols := w.registry.Headers()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c + HeaderSeparator
	}
	return out
}

// Write builds a workbook with one row per product, in the given order.
// Every cell is written as text so prices keep their canonical form.
func (w *SpreadsheetWriter) Write(products []Product) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	headers := w.Headers()
	if err := sw.SetColWidth(1, len(headers), 20); err != nil {
		f.Close()
		return nil, fmt.Errorf("set column width: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header row: %w", err)
	}

	attrs := w.registry.Attributes()
	for i, p := range products {
		row := make([]interface{}, 0, len(headers))
		row = append(row, p.Identifier, p.Title, p.Description, p.Price)
		for _, a := range attrs {
			row = append(row, p.FirstTerm(a.Key))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush worksheet: %w", err)
	}
	return f, nil
}

// Template builds a workbook holding only the header row.
func (w *SpreadsheetWriter) Template() (*excelize.File, error) {
	return w.Write(nil)
}

// SaveToPath writes the workbook to path.
func SaveToPath(f *excelize.File, path string) error {
	if err := f.SaveAs(path); err != nil {
		return &IOError{Path: path, Msg: "Failed to save spreadsheet.", Err: err}
	}
	return nil
}

// WriteTo serializes the workbook to out.
func WriteTo(f *excelize.File, out io.Writer) error {
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportFilename returns "<catalog>-products-export_<UTC Y-m-d_H-i-s>.xlsx".
func ExportFilename(catalog string, now time.Time) string {
	name := TermSlug(catalog)
	if strings.TrimSpace(catalog) == "" {
		name = "catalog"
	}
	return fmt.Sprintf("%s-products-export_%s.xlsx", name, now.UTC().Format(ExportTimeLayout))
}

// TemplateFilename returns the download name of the blank import template.
func TemplateFilename(catalog string) string {
	name := TermSlug(catalog)
	if strings.TrimSpace(catalog) == "" {
		name = "catalog"
	}
	return name + "-products-template.xlsx"
}

// ColumnLetter returns the spreadsheet column name for a 1-based index
// (1 -> "A", 27 -> "AA").
func ColumnLetter(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return ""
	}
	return name
}
