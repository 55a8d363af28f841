package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpreadsheetReader_WholeFile(t *testing.T) {
	dir := t.TempDir()
	rows := productRows(3)
	rows[2][0] = "" // row 3 has no identifier
	path := writeXLSX(t, dir, "catalog.xlsx", rows)

	r := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
	got, err := r.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2, got[0].Number)
	assert.Equal(t, "SKU-1", got[0].Get("Identifier"))
	assert.Equal(t, "10,50", got[0].Get("Price"))
	assert.Equal(t, "21G", got[0].Get("GAUGE"))
	assert.Equal(t, "", got[1].Get("Identifier"))
	assert.Equal(t, 4, got[2].Number)
}

func TestSpreadsheetReader_ChunkedMatchesWholeFile(t *testing.T) {
	dir := t.TempDir()
	rows := productRows(250)
	// interior blank row must survive, trailing blank rows must not
	rows[120] = []string{"", "", "", "", "", "", ""}
	path := writeXLSX(t, dir, "big.xlsx", rows)

	whole := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
	chunked := NewSpreadsheetReader(testRegistry(t), ReaderOptions{
		ChunkThreshold: 1, // every file takes the chunked path
		ChunkSize:      7,
		ReclaimMemory:  true,
	})

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.False(t, whole.Chunked(info.Size()))
	require.True(t, chunked.Chunked(info.Size()))

	want, err := whole.ReadFile(path)
	require.NoError(t, err)
	got, err := chunked.ReadFile(path)
	require.NoError(t, err)

	require.Len(t, got, 250)
	assert.Equal(t, want, got)
	assert.Equal(t, 121, got[119].Number)
	assert.Equal(t, "", got[119].Get("Identifier"))
	assert.Equal(t, "SKU-250", got[249].Get("Identifier"))
}

func TestSpreadsheetReader_ChunkedEmitsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeXLSX(t, dir, "order.xlsx", productRows(25))

	r := NewSpreadsheetReader(testRegistry(t), ReaderOptions{ChunkThreshold: 1, ChunkSize: 10})
	var numbers []int
	err := r.Each(path, func(row SpreadsheetRow) error {
		numbers = append(numbers, row.Number)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, numbers, 25)
	for i, n := range numbers {
		assert.Equal(t, i+2, n)
	}
}

func TestSpreadsheetReader_CallbackErrorStops(t *testing.T) {
	dir := t.TempDir()
	path := writeXLSX(t, dir, "stop.xlsx", productRows(5))
	stop := errors.New("stop")

	r := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
	calls := 0
	err := r.Each(path, func(SpreadsheetRow) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestSpreadsheetReader_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "catalog.csv", productRows(2))

	r := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
	got, err := r.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Product 2", got[1].Get("Title"))

	chunked := NewSpreadsheetReader(testRegistry(t), ReaderOptions{ChunkThreshold: 1, ChunkSize: 1})
	again, err := chunked.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSpreadsheetReader_CSVRowNumbersFollowLines(t *testing.T) {
	header := "Identifier,Title,Description,Price,CATEGORY,GAUGE,MATERIAL\n"
	tests := []struct {
		name    string
		body    string
		numbers []int
		skus    []string
	}{
		{
			name:    "blank interior line",
			body:    "A1,Hat,,5,,,\n\nA2,Cap,,6,,,\n",
			numbers: []int{2, 3, 4},
			skus:    []string{"A1", "", "A2"},
		},
		{
			name:    "several blank lines",
			body:    "A1,Hat,,5,,,\n\n\n\nA2,Cap,,6,,,\n",
			numbers: []int{2, 3, 4, 5, 6},
			skus:    []string{"A1", "", "", "", "A2"},
		},
		{
			name:    "quoted line break stays one row",
			body:    "A1,Hat,\"two\nlines\",5,,,\nA2,Cap,,6,,,\n",
			numbers: []int{2, 3},
			skus:    []string{"A1", "A2"},
		},
		{
			name:    "trailing blank lines dropped",
			body:    "A1,Hat,,5,,,\n\n\n",
			numbers: []int{2},
			skus:    []string{"A1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.csv")
			require.NoError(t, os.WriteFile(path, []byte(header+tt.body), 0o600))

			whole := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
			chunked := NewSpreadsheetReader(testRegistry(t), ReaderOptions{ChunkThreshold: 1, ChunkSize: 2})

			for _, r := range []*SpreadsheetReader{whole, chunked} {
				got, err := r.ReadFile(path)
				require.NoError(t, err)

				var numbers []int
				var skus []string
				for _, row := range got {
					numbers = append(numbers, row.Number)
					skus = append(skus, row.Get("Identifier"))
				}
				assert.Equal(t, tt.numbers, numbers)
				assert.Equal(t, tt.skus, skus)
			}
		})
	}
}

func TestSpreadsheetReader_CSVBlankLineIsIgnoredRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "Identifier,Title,Description,Price,CATEGORY,GAUGE,MATERIAL\n" +
		"A1,Hat,,5,,,\n\nA2,Cap,,x,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, err := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions()).ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	v := NewRowValidator(testRegistry(t))
	_, rej := v.Validate(rows[1])
	require.NotNil(t, rej)
	assert.Equal(t, 3, rej.Row)
	assert.Equal(t, RejectEmptyRow, rej.Code)

	_, rej = v.Validate(rows[2])
	require.NotNil(t, rej)
	assert.Equal(t, 4, rej.Row)
	assert.Equal(t, RejectInvalidPrice, rej.Code)
}

func TestSpreadsheetReader_SemicolonCSVWithBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "excel.csv")
	content := "\xEF\xBB\xBFIdentifier;Title;Description;Price;CATEGORY;GAUGE;MATERIAL\n" +
		"A-1;Hat;;12,5;;;Wool\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
	got, err := r.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A-1", got[0].Get("Identifier"))
	assert.Equal(t, "Wool", got[0].Get("MATERIAL"))
}

func TestSpreadsheetReader_FileErrors(t *testing.T) {
	dir := t.TempDir()
	reg := testRegistry(t)
	r := NewSpreadsheetReader(reg, DefaultReaderOptions())

	t.Run("missing file", func(t *testing.T) {
		_, err := r.ReadFile(filepath.Join(dir, "nope.xlsx"))
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr), "got %v", err)
		assert.Contains(t, ioErr.Msg, "does not exist")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.xlsx")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, err := r.ReadFile(path)
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr), "got %v", err)
		assert.Equal(t, "File is empty or cannot be read.", ioErr.Msg)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := r.ReadFile(dir)
		var ioErr *IOError
		assert.True(t, errors.As(err, &ioErr), "got %v", err)
	})

	t.Run("corrupt xlsx", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.xlsx")
		require.NoError(t, os.WriteFile(path, []byte("this is not a workbook"), 0o600))
		_, err := r.ReadFile(path)
		var fmtErr *FormatError
		assert.True(t, errors.As(err, &fmtErr), "got %v", err)
	})

	t.Run("legacy xls", func(t *testing.T) {
		path := filepath.Join(dir, "old.xls")
		data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)
		require.NoError(t, os.WriteFile(path, data, 0o600))
		_, err := r.ReadFile(path)
		var fmtErr *FormatError
		require.True(t, errors.As(err, &fmtErr), "got %v", err)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Contains(t, fmtErr.Msg, "re-save the file as .xlsx")
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
		_, err := r.ReadFile(path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("headers only", func(t *testing.T) {
		path := writeXLSX(t, dir, "headers.xlsx", [][]string{testHeaders()})
		_, err := r.ReadFile(path)
		var fmtErr *FormatError
		require.True(t, errors.As(err, &fmtErr), "got %v", err)
		assert.Contains(t, fmtErr.Msg, "no data rows")
	})

	t.Run("headers only chunked", func(t *testing.T) {
		path := writeXLSX(t, dir, "headers2.xlsx", [][]string{testHeaders()})
		chunked := NewSpreadsheetReader(reg, ReaderOptions{ChunkThreshold: 1})
		_, err := chunked.ReadFile(path)
		var fmtErr *FormatError
		require.True(t, errors.As(err, &fmtErr), "got %v", err)
		assert.Contains(t, fmtErr.Msg, "no data rows")
	})
}

func TestSpreadsheetReader_HeaderErrorBeforeRows(t *testing.T) {
	dir := t.TempDir()
	rows := productRows(3)
	rows[0] = append(rows[0], "BRAND;")
	path := writeXLSX(t, dir, "extra.xlsx", rows)

	for _, opts := range []ReaderOptions{DefaultReaderOptions(), {ChunkThreshold: 1, ChunkSize: 2}} {
		r := NewSpreadsheetReader(testRegistry(t), opts)
		calls := 0
		err := r.Each(path, func(SpreadsheetRow) error {
			calls++
			return nil
		})

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr), "got %v", err)
		assert.Equal(t, SchemaUnexpectedColumns, schemaErr.Kind)
		assert.Zero(t, calls)
	}
}

func TestSpreadsheetReader_BlankInteriorHeaderColumn(t *testing.T) {
	dir := t.TempDir()
	header := []string{"Identifier;", "", "Title;", "Description;", "Price;", "CATEGORY;", "GAUGE;", "MATERIAL;"}
	data := []string{"X-9", "stray", "Cap", "", "5", "", "", ""}
	path := writeXLSX(t, dir, "gap.xlsx", [][]string{header, data})

	r := NewSpreadsheetReader(testRegistry(t), DefaultReaderOptions())
	got, err := r.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cap", got[0].Get("Title"))
	assert.Equal(t, "5", got[0].Get("Price"))
}
