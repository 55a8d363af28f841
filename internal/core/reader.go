package core

// reader.go loads a spreadsheet into ordered header -> value rows.
//
// Files below ChunkThreshold are decoded in one pass. Larger files are read
// through a forward-only row iterator in windows of ChunkSize rows; each window
// is parsed, handed to the caller and released before the next one is read,
// so peak memory is bounded by the window rather than the file.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Reader defaults.
const (
	DefaultChunkThreshold = 5 << 20
	DefaultChunkSize      = 100
)

// ReaderOptions tune the reading strategy.
type ReaderOptions struct {
	ChunkThreshold int64 // Files at or above this size are read in chunks
	ChunkSize      int   // Rows per chunk
	ReclaimMemory  bool  // Run the garbage collector after every chunk
}

// DefaultReaderOptions returns the standard 5 MiB / 100 row strategy.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{
		ChunkThreshold: DefaultChunkThreshold,
		ChunkSize:      DefaultChunkSize,
		ReclaimMemory:  true,
	}
}

// SpreadsheetReader reads xlsx and csv files against a registry snapshot.
type SpreadsheetReader struct {
	registry *SchemaRegistry
	opts     ReaderOptions
}

// NewSpreadsheetReader creates a reader. Zero option fields fall back to defaults.
func NewSpreadsheetReader(registry *SchemaRegistry, opts ReaderOptions) *SpreadsheetReader {
	if opts.ChunkThreshold <= 0 {
		opts.ChunkThreshold = DefaultChunkThreshold
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &SpreadsheetReader{registry: registry, opts: opts}
}

// fileFormat is the detected container format of an input file.
type fileFormat int

const (
	formatXLSX fileFormat = iota
	formatCSV
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ReadFile returns every data row of the file in sheet order.
func (r *SpreadsheetReader) ReadFile(path string) ([]SpreadsheetRow, error) {
	var rows []SpreadsheetRow
	err := r.Each(path, func(row SpreadsheetRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Each streams data rows to fn in sheet order. Headers are validated before
// fn is first called; an error from fn stops the read and is returned as is.
func (r *SpreadsheetReader) Each(path string, fn func(SpreadsheetRow) error) error {
	size, err := checkFile(path)
	if err != nil {
		return err
	}

	format, err := detectFormat(path)
	if err != nil {
		return err
	}

	chunked := size >= r.opts.ChunkThreshold
	var emitted int
	count := func(row SpreadsheetRow) error {
		emitted++
		return fn(row)
	}

	switch {
	case format == formatCSV && chunked:
		err = r.readCSVChunked(path, count)
	case format == formatCSV:
		err = r.readCSVWhole(path, count)
	case chunked:
		err = r.readXLSXChunked(path, count)
	default:
		err = r.readXLSXWhole(path, count)
	}
	if err != nil {
		return err
	}
	if emitted == 0 {
		return &FormatError{Msg: "Excel file contains only headers but no data rows."}
	}
	return nil
}

// Chunked reports whether a file of the given size takes the chunked path.
func (r *SpreadsheetReader) Chunked(size int64) bool {
	return size >= r.opts.ChunkThreshold
}

// checkFile verifies the file exists, is a readable regular file, and is not empty.
func checkFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, &IOError{Path: path, Msg: "File does not exist: " + filepath.Base(path)}
		}
		return 0, &IOError{Path: path, Msg: "File cannot be read.", Err: err}
	}
	if info.IsDir() {
		return 0, &IOError{Path: path, Msg: "Path is a directory, not a file: " + filepath.Base(path)}
	}
	if info.Size() == 0 {
		return 0, &IOError{Path: path, Msg: "File is empty or cannot be read."}
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, &IOError{Path: path, Msg: "File is not readable. Please check file permissions.", Err: err}
	}
	f.Close()

	return info.Size(), nil
}

// detectFormat identifies the file by signature, falling back to the extension.
func detectFormat(path string) (fileFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &IOError{Path: path, Msg: "File is not readable. Please check file permissions.", Err: err}
	}
	defer f.Close()

	head := make([]byte, len(ole2Magic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, &IOError{Path: path, Msg: "File cannot be read.", Err: err}
	}
	head = head[:n]

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return formatXLSX, nil
	case bytes.HasPrefix(head, ole2Magic):
		return 0, &FormatError{
			Msg: "Failed to read Excel file. Legacy .xls workbooks are not supported; re-save the file as .xlsx.",
			Err: ErrUnsupportedFormat,
		}
	case ext == "csv":
		return formatCSV, nil
	case ext == "xlsx" || ext == "xls":
		return 0, &FormatError{
			Msg: "Failed to read Excel file. The file may be corrupted or in an unsupported format.",
			Err: fmt.Errorf("%w: not a zip container", ErrUnsupportedFormat),
		}
	default:
		return 0, &FormatError{
			Msg: fmt.Sprintf("Invalid file type %q. Allowed formats: %s.", ext, strings.Join(AllowedExtensions, ", ")),
			Err: ErrUnsupportedFormat,
		}
	}
}

const errNoData = "Excel file contains no data. Please ensure the file has at least a header row."

// AllowedExtensions are the upload extensions accepted by the import action.
var AllowedExtensions = []string{"xls", "xlsx", "csv"}

// rowIterator is a forward-only source of raw rows.
type rowIterator interface {
	Next() bool
	Cells() ([]string, error)
	Err() error
	Close() error
}

// readChunked drains it in windows of ChunkSize rows. The first row is the header.
// Trailing blank rows are dropped to match the whole-file path.
func (r *SpreadsheetReader) readChunked(it rowIterator, fn func(SpreadsheetRow) error) error {
	defer it.Close()

	if !it.Next() {
		return &FormatError{Msg: errNoData}
	}
	headerCells, err := it.Cells()
	if err != nil {
		return &FormatError{Msg: "Failed to read worksheet data. The file may be corrupted.", Err: err}
	}
	idx := ParseHeaders(headerCells)
	if err := ValidateHeaders(idx.Names, r.registry); err != nil {
		return err
	}

	type rawRow struct {
		number int
		cells  []string
	}
	window := make([]rawRow, 0, r.opts.ChunkSize)
	var blanks []int // blank rows held back until a non-blank row follows

	flush := func() error {
		for _, raw := range window {
			if err := fn(idx.buildRow(raw.number, raw.cells)); err != nil {
				return err
			}
		}
		clear(window)
		window = window[:0]
		if r.opts.ReclaimMemory {
			runtime.GC()
		}
		return nil
	}

	for number := 2; it.Next(); number++ {
		cells, err := it.Cells()
		if err != nil {
			return &FormatError{Msg: "Failed to read worksheet data. The file may be corrupted.", Err: err}
		}
		if blankCells(cells) {
			blanks = append(blanks, number)
			continue
		}
		for _, b := range blanks {
			window = append(window, rawRow{number: b})
			if len(window) == r.opts.ChunkSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		blanks = blanks[:0]

		window = append(window, rawRow{number: number, cells: cells})
		if len(window) == r.opts.ChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := it.Err(); err != nil {
		return &FormatError{Msg: "Failed to read worksheet data. The file may be corrupted.", Err: err}
	}
	if len(window) > 0 {
		return flush()
	}
	return nil
}

// emitAll parses rows decoded in one pass. rows[0] is the header.
func (r *SpreadsheetReader) emitAll(rows [][]string, fn func(SpreadsheetRow) error) error {
	if len(rows) == 0 {
		return &FormatError{Msg: errNoData}
	}
	idx := ParseHeaders(rows[0])
	if err := ValidateHeaders(idx.Names, r.registry); err != nil {
		return err
	}

	last := len(rows) - 1
	for last > 0 && blankCells(rows[last]) {
		last--
	}
	for i := 1; i <= last; i++ {
		if err := fn(idx.buildRow(i+1, rows[i])); err != nil {
			return err
		}
	}
	return nil
}

func blankCells(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
