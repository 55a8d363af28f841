package core_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/store/memstore"
)

var fixtureAttributes = []core.AttributeDef{
	{Column: "CATEGORY", Key: "product_category", Label: "Category", Hierarchical: true},
	{Column: "GAUGE", Key: "gauge", Label: "Gauge"},
	{Column: "MATERIAL", Key: "material", Label: "Material"},
}

var fixtureHeaders = []string{"Identifier;", "Title;", "Description;", "Price;", "CATEGORY;", "GAUGE;", "MATERIAL;"}

// dataRow builds a spreadsheet row as the reader would.
func dataRow(number int, id, title, price, category, gauge, material string) core.SpreadsheetRow {
	cols := []string{"Identifier", "Title", "Description", "Price", "CATEGORY", "GAUGE", "MATERIAL"}
	return core.SpreadsheetRow{
		Number:  number,
		Columns: cols,
		Values: map[string]string{
			"Identifier":  id,
			"Title":       title,
			"Description": "",
			"Price":       price,
			"CATEGORY":    category,
			"GAUGE":       gauge,
			"MATERIAL":    material,
		},
	}
}

func newService(t *testing.T, store core.Store) *core.Service {
	t.Helper()
	svc, err := core.NewService(context.Background(), store, fixtureAttributes, core.ServiceConfig{CatalogName: "Test Shop"})
	require.NoError(t, err)
	return svc
}

// saveWorkbook writes rows to dir/name and returns the path.
func saveWorkbook(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func catalogRows(n int) [][]string {
	rows := [][]string{fixtureHeaders}
	for i := 1; i <= n; i++ {
		s := strconv.Itoa(i)
		rows = append(rows, []string{"SKU-" + s, "Product " + s, "Desc " + s, "1" + s + ",5", "Needles", "2" + s + "G", "Steel"})
	}
	return rows
}

var errInjected = errors.New("connection reset by peer")

// failingStore fails product writes for selected identifiers.
type failingStore struct {
	*memstore.Store
	failCreate map[string]bool
	failTerms  map[string]bool
}

func newFailingStore() *failingStore {
	return &failingStore{
		Store:      memstore.New(),
		failCreate: make(map[string]bool),
		failTerms:  make(map[string]bool),
	}
}

func (s *failingStore) CreateProduct(ctx context.Context, f core.ProductFields) (int64, error) {
	if s.failCreate[f.Identifier] {
		return 0, errInjected
	}
	return s.Store.CreateProduct(ctx, f)
}

func (s *failingStore) CreateTerm(ctx context.Context, attribute, name, slug string) (core.Term, error) {
	if s.failTerms[name] {
		return core.Term{}, errInjected
	}
	return s.Store.CreateTerm(ctx, attribute, name, slug)
}

// cancelingStore cancels the import context once the product with the
// given identifier is created.
type cancelingStore struct {
	*memstore.Store
	after  string
	cancel context.CancelFunc
}

func (s *cancelingStore) CreateProduct(ctx context.Context, f core.ProductFields) (int64, error) {
	id, err := s.Store.CreateProduct(ctx, f)
	if f.Identifier == s.after {
		s.cancel()
	}
	return id, err
}
