package core

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
)

func (r *SpreadsheetReader) readCSVWhole(path string, fn func(SpreadsheetRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &IOError{Path: path, Msg: "File is not readable. Please check file permissions.", Err: err}
	}
	rows := &csvRows{file: f, cr: newCSVReader(f)}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		cells, err := rows.Cells()
		if err != nil {
			return &FormatError{Msg: "Failed to read CSV file. The file may be corrupted.", Err: err}
		}
		records = append(records, cells)
	}
	return r.emitAll(records, fn)
}

func (r *SpreadsheetReader) readCSVChunked(path string, fn func(SpreadsheetRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &IOError{Path: path, Msg: "File is not readable. Please check file permissions.", Err: err}
	}
	return r.readChunked(&csvRows{file: f, cr: newCSVReader(f)}, fn)
}

// csvRows adapts csv.Reader to rowIterator, yielding one row per sheet row.
// csv.Reader skips blank lines; they come back here as empty rows so that
// row numbers match what a spreadsheet program shows for the file.
type csvRows struct {
	file   *os.File
	cr     *csv.Reader
	record []string
	err    error

	lastLine int      // line on which the previous record ended
	blanks   int      // blank rows still owed before pending
	pending  []string // record read ahead while blank rows are emitted
}

func (c *csvRows) Next() bool {
	switch {
	case c.blanks > 0:
		c.blanks--
		c.record = nil
		return true
	case c.pending != nil:
		c.record, c.pending = c.pending, nil
		return true
	}

	record, err := c.cr.Read()
	if errors.Is(err, io.EOF) {
		c.record, c.err = nil, nil
		return false
	}
	if err != nil {
		c.record, c.err = nil, err
		return true
	}

	start, _ := c.cr.FieldPos(0)
	gap := start - c.lastLine - 1
	c.lastLine = start + recordLineBreaks(record)
	if gap > 0 {
		c.blanks = gap - 1
		c.pending = record
		c.record = nil
		return true
	}
	c.record, c.err = record, nil
	return true
}

// recordLineBreaks counts the line breaks inside quoted fields of record.
func recordLineBreaks(record []string) int {
	n := 0
	for _, field := range record {
		n += strings.Count(field, "\n")
	}
	return n
}

func (c *csvRows) Cells() ([]string, error) {
	return c.record, c.err
}

func (c *csvRows) Err() error { return nil }

func (c *csvRows) Close() error {
	return c.file.Close()
}
