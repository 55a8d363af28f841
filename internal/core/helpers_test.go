package core

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"
)

// testAttributes is a small attribute set used across the package tests.
var testAttributes = []AttributeDef{
	{Column: "CATEGORY", Key: "product_category", Label: "Category", Hierarchical: true},
	{Column: "GAUGE", Key: "gauge", Label: "Gauge"},
	{Column: "MATERIAL", Key: "material", Label: "Material"},
}

func testRegistry(t *testing.T) *SchemaRegistry {
	t.Helper()
	reg, err := NewSchemaRegistry(testAttributes)
	if err != nil {
		t.Fatalf("NewSchemaRegistry: %v", err)
	}
	return reg
}

// testHeaders returns the header cells an export of testRegistry would carry.
func testHeaders() []string {
	return []string{"Identifier;", "Title;", "Description;", "Price;", "CATEGORY;", "GAUGE;", "MATERIAL;"}
}

// writeXLSX writes rows to a new workbook in dir and returns its path.
func writeXLSX(t testing.TB, dir, name string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if v == "" {
				continue
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				t.Fatalf("SetCellStr: %v", err)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

// writeCSV writes rows as comma separated values and returns the path.
func writeCSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// productRows builds n valid data rows after the header.
func productRows(n int) [][]string {
	rows := [][]string{testHeaders()}
	for i := 1; i <= n; i++ {
		rows = append(rows, []string{
			"SKU-" + strconv.Itoa(i), "Product " + strconv.Itoa(i), "Description", "10,50", "Needles", "21G", "Steel",
		})
	}
	return rows
}
