package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// openTestStore connects to CATALOGSYNC_TEST_DATABASE_URL and empties the
// catalog tables. The tests skip when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("CATALOGSYNC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CATALOGSYNC_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, PoolConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.pool.Exec(ctx, `TRUNCATE product_terms, terms, products, custom_attributes, settings RESTART IDENTITY`)
	require.NoError(t, err)
	return s
}

func TestIsUnique(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped", errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"}), true},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnique(tt.err))
		})
	}
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), PoolConfig{URL: "://not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse database URL")
}

func TestStore_ProductsAndTerms(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateProduct(ctx, core.ProductFields{Identifier: "A", Title: "Alpha", Price: "10.5"})
	require.NoError(t, err)

	_, err = s.CreateProduct(ctx, core.ProductFields{Identifier: "A", Title: "Again"})
	require.Error(t, err)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	p, err := s.FindByIdentifier(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "10.50", p.Price)

	require.NoError(t, s.UpdateProduct(ctx, id, core.ProductFields{Title: "Alpha 2", Price: "3.00"}))
	assert.ErrorIs(t, s.UpdateProduct(ctx, id+100, core.ProductFields{}), core.ErrNotFound)

	a, err := s.CreateTerm(ctx, "gauge", "21G", "21g")
	require.NoError(t, err)
	_, err = s.CreateTerm(ctx, "gauge", "21G", "21g")
	assert.ErrorIs(t, err, core.ErrTermExists)
	b, err := s.CreateTerm(ctx, "gauge", "21 G", "21g")
	require.NoError(t, err)
	assert.Equal(t, "21g-2", b.Slug)

	require.NoError(t, s.AssignTerms(ctx, id, "gauge", []int64{b.ID, a.ID}))
	p, err = s.FindByIdentifier(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "21 G", p.FirstTerm("gauge"))

	got, err := s.ListProducts(ctx, core.ProductFilter{Terms: map[string][]int64{"gauge": {a.ID}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha 2", got[0].Title)

	terms, err := s.ListTerms(ctx, "gauge")
	require.NoError(t, err)
	assert.Equal(t, []string{"21 G", "21G"}, []string{terms[0].Name, terms[1].Name})
}

func TestStore_SettingsAndPurge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	custom := []core.AttributeDef{{Column: "BRAND", Key: "brand", Label: "Brand", Hierarchical: true}}
	require.NoError(t, s.SaveCustomAttributes(ctx, custom))
	require.NoError(t, s.SaveSettings(ctx, core.Settings{DeleteOnUninstall: true}))

	got, err := s.CustomAttributes(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	require.NoError(t, s.Purge(ctx))
	got, err = s.CustomAttributes(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.DeleteOnUninstall)
}
