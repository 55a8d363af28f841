package core

import (
	"github.com/xuri/excelize/v2"
)

const errCorruptWorkbook = "Failed to read Excel file. The file may be corrupted or in an unsupported format."

func openWorkbook(path string) (*excelize.File, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", &FormatError{Msg: errCorruptWorkbook, Err: err}
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		if list := f.GetSheetList(); len(list) > 0 {
			sheet = list[0]
		}
	}
	if sheet == "" {
		f.Close()
		return nil, "", &FormatError{Msg: "Excel file contains no worksheets."}
	}
	return f, sheet, nil
}

func (r *SpreadsheetReader) readXLSXWhole(path string, fn func(SpreadsheetRow) error) error {
	f, sheet, err := openWorkbook(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return &FormatError{Msg: "Failed to read worksheet data. The file may be corrupted.", Err: err}
	}
	return r.emitAll(rows, fn)
}

func (r *SpreadsheetReader) readXLSXChunked(path string, fn func(SpreadsheetRow) error) error {
	f, sheet, err := openWorkbook(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.Rows(sheet)
	if err != nil {
		return &FormatError{Msg: "Failed to read worksheet data. The file may be corrupted.", Err: err}
	}
	return r.readChunked(xlsxRows{rows}, fn)
}

// xlsxRows adapts the excelize row iterator to rowIterator.
type xlsxRows struct {
	rows *excelize.Rows
}

func (x xlsxRows) Next() bool { return x.rows.Next() }

func (x xlsxRows) Cells() ([]string, error) { return x.rows.Columns() }

func (x xlsxRows) Err() error { return x.rows.Error() }

func (x xlsxRows) Close() error { return x.rows.Close() }
