package core

import (
	"strconv"
	"testing"
)

// ============================================================================
// Conversion Function Benchmarks
// ============================================================================

// BenchmarkNormalizePrice benchmarks price normalization.
// This runs once per imported row.
func BenchmarkNormalizePrice(b *testing.B) {
	testCases := []string{
		"10",
		"10,50",
		"1234.5",
		"  99.999  ",
		"abc",
		"-0",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			NormalizePrice(tc)
		}
	}
}

// BenchmarkSanitizeIdentifier benchmarks identifier cleanup.
func BenchmarkSanitizeIdentifier(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizeIdentifier("  SKU-12345/blue <xl>  ")
	}
}

// BenchmarkTermSlug benchmarks slug generation for new terms.
func BenchmarkTermSlug(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TermSlug("Stainless Steel 316L")
	}
}

// ============================================================================
// Row Validation Benchmarks
// ============================================================================

// BenchmarkValidate benchmarks validation of distinct rows.
func BenchmarkValidate(b *testing.B) {
	reg := MustSchemaRegistry(testAttributes)
	idx := ParseHeaders(testHeaders())
	rows := make([]SpreadsheetRow, 1000)
	for i := range rows {
		rows[i] = idx.buildRow(i+2, []string{
			"SKU-" + strconv.Itoa(i), "Product", "Description", "10,50", "Needles", "21G", "Steel",
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v := NewRowValidator(reg)
		for _, r := range rows {
			v.Validate(r)
		}
	}
}

// ============================================================================
// Reader Benchmarks
// ============================================================================

func benchmarkRead(b *testing.B, opts ReaderOptions) {
	dir := b.TempDir()
	rows := [][]string{testHeaders()}
	for i := 1; i <= 2000; i++ {
		rows = append(rows, []string{"SKU-" + strconv.Itoa(i), "Product", "Description", "10,50", "Needles", "21G", "Steel"})
	}
	path := writeXLSX(b, dir, "bench.xlsx", rows)

	r := NewSpreadsheetReader(MustSchemaRegistry(testAttributes), opts)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Each(path, func(SpreadsheetRow) error { return nil }); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReadWhole loads the sheet in one call.
func BenchmarkReadWhole(b *testing.B) {
	benchmarkRead(b, DefaultReaderOptions())
}

// BenchmarkReadChunked streams the sheet in 100-row windows.
func BenchmarkReadChunked(b *testing.B) {
	benchmarkRead(b, ReaderOptions{ChunkThreshold: 1, ChunkSize: DefaultChunkSize})
}
