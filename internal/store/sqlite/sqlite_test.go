package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigratesAndReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.CreateProduct(ctx, core.ProductFields{Identifier: "A", Title: "Alpha", Price: "1.00"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// running migrations again is a no-op and the data survives
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	p, err := s.FindByIdentifier(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", p.Title)
}

func TestStore_Products(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, err := s.FindByIdentifier(ctx, "A")
	assert.ErrorIs(t, err, core.ErrNotFound)

	id, err := s.CreateProduct(ctx, core.ProductFields{Identifier: "A", Title: "Alpha", Description: "d", Price: "1.00"})
	require.NoError(t, err)

	_, err = s.CreateProduct(ctx, core.ProductFields{Identifier: "A", Title: "Again"})
	require.Error(t, err)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	require.NoError(t, s.UpdateProduct(ctx, id, core.ProductFields{Identifier: "A", Title: "Alpha 2", Price: "2.50"}))
	p, err := s.FindByIdentifier(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "Alpha 2", p.Title)
	assert.Equal(t, "", p.Description)
	assert.Equal(t, "2.50", p.Price)
	assert.Empty(t, p.Attributes)
	assert.True(t, fixed.Equal(p.UpdatedAt), "updated_at = %v", p.UpdatedAt)

	assert.ErrorIs(t, s.UpdateProduct(ctx, id+100, core.ProductFields{}), core.ErrNotFound)
}

func TestStore_Terms(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a, err := s.CreateTerm(ctx, "gauge", "21G", "21g")
	require.NoError(t, err)
	assert.Equal(t, core.Term{ID: a.ID, AttributeKey: "gauge", Name: "21G", Slug: "21g"}, a)

	_, err = s.CreateTerm(ctx, "gauge", "21G", "21g")
	assert.ErrorIs(t, err, core.ErrTermExists)

	b, err := s.CreateTerm(ctx, "gauge", "21 G", "21g")
	require.NoError(t, err)
	assert.Equal(t, "21g-2", b.Slug)

	other, err := s.CreateTerm(ctx, "tip_type", "21G", "21g")
	require.NoError(t, err)
	assert.Equal(t, "21g", other.Slug)

	got, err := s.FindTermByName(ctx, "gauge", "21G")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = s.FindTermByName(ctx, "gauge", "21g")
	assert.ErrorIs(t, err, core.ErrNotFound)

	terms, err := s.ListTerms(ctx, "gauge")
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "21 G", terms[0].Name)
}

func TestStore_AssignAndFilter(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p1, err := s.CreateProduct(ctx, core.ProductFields{Identifier: "P1", Title: "One"})
	require.NoError(t, err)
	p2, err := s.CreateProduct(ctx, core.ProductFields{Identifier: "P2", Title: "Two"})
	require.NoError(t, err)

	g21, _ := s.CreateTerm(ctx, "gauge", "21G", "21g")
	g22, _ := s.CreateTerm(ctx, "gauge", "22G", "22g")
	steel, _ := s.CreateTerm(ctx, "material", "Steel", "steel")

	require.NoError(t, s.AssignTerms(ctx, p1, "gauge", []int64{g22.ID, g21.ID}))
	require.NoError(t, s.AssignTerms(ctx, p1, "material", []int64{steel.ID}))
	require.NoError(t, s.AssignTerms(ctx, p2, "gauge", []int64{g21.ID}))
	require.NoError(t, s.AssignTerms(ctx, p2, "gauge", []int64{g22.ID})) // replaces

	p, err := s.FindByIdentifier(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "22G", p.FirstTerm("gauge"), "assignment order is kept")
	assert.Len(t, p.Attributes["gauge"], 2)

	all, err := s.ListProducts(ctx, core.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "22G", all[1].FirstTerm("gauge"))
	assert.Len(t, all[1].Attributes["gauge"], 1)

	got, err := s.ListProducts(ctx, core.ProductFilter{Terms: map[string][]int64{
		"gauge":    {g22.ID},
		"material": {steel.ID},
	}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "P1", got[0].Identifier)

	got, err = s.ListProducts(ctx, core.ProductFilter{Terms: map[string][]int64{"gauge": {g21.ID}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "P1", got[0].Identifier)

	// unknown term violates the foreign key
	assert.Error(t, s.AssignTerms(ctx, p1, "gauge", []int64{9999}))
}

func TestStore_SettingsAndPurge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.DeleteOnUninstall)

	require.NoError(t, s.SaveSettings(ctx, core.Settings{DeleteOnUninstall: true}))
	require.NoError(t, s.SaveSettings(ctx, core.Settings{DeleteOnUninstall: true}))
	settings, err = s.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.DeleteOnUninstall)

	custom := []core.AttributeDef{
		{Column: "BRAND", Key: "brand", Label: "Brand"},
		{Column: "FAMILY", Key: "family", Label: "Family", Hierarchical: true},
	}
	require.NoError(t, s.SaveCustomAttributes(ctx, custom))
	got, err := s.CustomAttributes(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	pid, err := s.CreateProduct(ctx, core.ProductFields{Identifier: "P1", Title: "One"})
	require.NoError(t, err)
	term, err := s.CreateTerm(ctx, "brand", "Acme", "acme")
	require.NoError(t, err)
	require.NoError(t, s.AssignTerms(ctx, pid, "brand", []int64{term.ID}))

	require.NoError(t, s.Purge(ctx))

	got, err = s.CustomAttributes(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	settings, err = s.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.DeleteOnUninstall)

	p, err := s.FindByIdentifier(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, p.Attributes)
}

func TestStore_FailurePaths(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
		call  func(s *Store) error
	}{
		{
			name: "find product query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM products WHERE identifier").WillReturnError(boom)
			},
			call: func(s *Store) error {
				_, err := s.FindByIdentifier(ctx, "A")
				return err
			},
		},
		{
			name: "create term cannot begin",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(boom)
			},
			call: func(s *Store) error {
				_, err := s.CreateTerm(ctx, "gauge", "21G", "21g")
				return err
			},
		},
		{
			name: "assign rolls back when insert fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM product_terms").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO product_terms").WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s *Store) error {
				return s.AssignTerms(ctx, 1, "gauge", []int64{7})
			},
		},
		{
			name: "purge rolls back on first failure",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM product_terms").WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec("DELETE FROM terms").WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s *Store) error {
				return s.Purge(ctx)
			},
		},
		{
			name: "list products query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM products").WillReturnError(boom)
			},
			call: func(s *Store) error {
				_, err := s.ListProducts(ctx, core.ProductFilter{})
				return err
			},
		},
		{
			name: "settings query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT value FROM settings").WillReturnError(boom)
			},
			call: func(s *Store) error {
				_, err := s.Settings(ctx)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setup(mock)
			err = tt.call(New(db))
			assert.ErrorIs(t, err, boom)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_ListProductsLoadsTermsInBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "identifier", "title", "description", "price", "updated_at"}
	rows := sqlmock.NewRows(cols)
	now := time.Now()
	for i := 1; i <= termBatch+1; i++ {
		rows.AddRow(int64(i), "P", "T", "", "1.00", now)
	}
	mock.ExpectQuery("SELECT .* FROM products").WillReturnRows(rows)

	termCols := []string{"product_id", "id", "attribute", "name", "slug"}
	mock.ExpectQuery("FROM product_terms").WillReturnRows(sqlmock.NewRows(termCols).AddRow(int64(1), int64(10), "gauge", "21G", "21g"))
	mock.ExpectQuery("FROM product_terms").WillReturnRows(sqlmock.NewRows(termCols))

	got, err := New(db).ListProducts(context.Background(), core.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, got, termBatch+1)
	assert.Equal(t, "21G", got[0].FirstTerm("gauge"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
