package core

// streaming.go decodes delimited text input without loading the file into memory.
//
// Spreadsheet programs export CSV with a byte order mark, in UTF-16, or with
// stray bytes from legacy code pages. The input is normalized to UTF-8 on the
// fly: a UTF-8 or UTF-16 BOM selects the decoding, and invalid sequences are
// replaced with U+FFFD.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// csvPeekSize bounds how much of the first line is inspected to pick the delimiter.
const csvPeekSize = 4096

// NewUTF8Reader wraps r so that reads yield valid UTF-8 with any BOM removed.
func NewUTF8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// newCSVReader builds a csv.Reader over r. The delimiter is ';' when the
// header line contains semicolons and no commas, ',' otherwise.
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReaderSize(NewUTF8Reader(r), csvPeekSize)
	head, _ := br.Peek(csvPeekSize)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = SniffDelimiter(string(head))
	return cr
}

// SniffDelimiter reports the delimiter newCSVReader would pick for the given header line.
func SniffDelimiter(headerLine string) rune {
	if strings.Contains(headerLine, ";") && !strings.Contains(headerLine, ",") {
		return ';'
	}
	return ','
}
