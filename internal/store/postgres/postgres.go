// Package postgres is a core.Store on PostgreSQL through a pgx connection
// pool. Schema changes are applied with goose on startup.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/store/sqlbuild"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	settingDeleteOnUninstall = "delete_on_uninstall"
	uniqueViolation          = "23505"
)

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store implements core.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open connects, verifies the connection and migrates the schema.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate applies the embedded migrations through a database/sql view of the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// --- Products ---

const productColumns = "products.id, products.identifier, products.title, products.description, products.price::text, products.updated_at"

func scanProduct(row pgx.Row) (core.Product, error) {
	var p core.Product
	err := row.Scan(&p.ID, &p.Identifier, &p.Title, &p.Description, &p.Price, &p.UpdatedAt)
	return p, err
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (core.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE identifier = $1", identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Product{}, core.ErrNotFound
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("find product %q: %w", identifier, err)
	}

	attrs, err := s.loadTerms(ctx, []int64{p.ID})
	if err != nil {
		return core.Product{}, err
	}
	p.Attributes = attrs[p.ID]
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, f core.ProductFields) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (identifier, title, description, price)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, '')::numeric, 0))
		RETURNING id`,
		f.Identifier, f.Title, f.Description, f.Price,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product %q: %w", f.Identifier, err)
	}
	return id, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, f core.ProductFields) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET title = $1, description = $2, price = COALESCE(NULLIF($3, '')::numeric, 0), updated_at = now()
		WHERE id = $4`,
		f.Title, f.Description, f.Price, id,
	)
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	where, args := sqlbuild.ProductFilter(filter, sqlbuild.Dollar, 0)
	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+" FROM products "+where+" ORDER BY products.id", args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Product, error) {
		return scanProduct(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	ids := make([]int64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	attrs, err := s.loadTerms(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Attributes = attrs[out[i].ID]
	}
	return out, nil
}

// loadTerms returns assigned terms per product, in assignment order.
// The ids travel as one array parameter.
func (s *Store) loadTerms(ctx context.Context, productIDs []int64) (map[int64]map[string][]core.Term, error) {
	out := make(map[int64]map[string][]core.Term, len(productIDs))
	for _, id := range productIDs {
		out[id] = make(map[string][]core.Term)
	}
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pt.product_id, t.id, t.attribute, t.name, t.slug
		FROM product_terms pt
		JOIN terms t ON t.id = pt.term_id
		WHERE pt.product_id = ANY($1)
		ORDER BY pt.product_id, pt.attribute, pt.position`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load product terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid int64
			t   core.Term
		)
		if err := rows.Scan(&pid, &t.ID, &t.AttributeKey, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan product term: %w", err)
		}
		out[pid][t.AttributeKey] = append(out[pid][t.AttributeKey], t)
	}
	return out, rows.Err()
}

// --- Terms ---

func (s *Store) FindTermByName(ctx context.Context, attribute, name string) (core.Term, error) {
	t := core.Term{AttributeKey: attribute}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug FROM terms WHERE attribute = $1 AND name = $2`, attribute, name,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Term{}, core.ErrNotFound
	}
	if err != nil {
		return core.Term{}, fmt.Errorf("find term %q: %w", name, err)
	}
	return t, nil
}

func (s *Store) CreateTerm(ctx context.Context, attribute, name, slug string) (core.Term, error) {
	var t core.Term
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		unique, err := uniqueSlug(ctx, tx, attribute, slug)
		if err != nil {
			return err
		}
		t = core.Term{AttributeKey: attribute, Name: name, Slug: unique}
		return tx.QueryRow(ctx,
			`INSERT INTO terms (attribute, name, slug) VALUES ($1, $2, $3) RETURNING id`,
			attribute, name, unique,
		).Scan(&t.ID)
	})
	if isUnique(err) {
		return core.Term{}, core.ErrTermExists
	}
	if err != nil {
		return core.Term{}, fmt.Errorf("insert term %q: %w", name, err)
	}
	return t, nil
}

// uniqueSlug suffixes -2, -3, ... while another term of the attribute holds the slug.
func uniqueSlug(ctx context.Context, tx pgx.Tx, attribute, slug string) (string, error) {
	candidate := slug
	for n := 2; ; n++ {
		var taken bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM terms WHERE attribute = $1 AND slug = $2)`, attribute, candidate,
		).Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = slug + "-" + strconv.Itoa(n)
	}
}

func (s *Store) AssignTerms(ctx context.Context, productID int64, attribute string, termIDs []int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM product_terms WHERE product_id = $1 AND attribute = $2`, productID, attribute); err != nil {
			return fmt.Errorf("clear terms: %w", err)
		}
		batch := &pgx.Batch{}
		for i, tid := range termIDs {
			batch.Queue(
				`INSERT INTO product_terms (product_id, attribute, term_id, position) VALUES ($1, $2, $3, $4)`,
				productID, attribute, tid, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("assign terms: %w", err)
		}
		return nil
	})
}

func (s *Store) ListTerms(ctx context.Context, attribute string) ([]core.Term, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug FROM terms WHERE attribute = $1 ORDER BY name COLLATE "C"`, attribute)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	terms, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Term, error) {
		t := core.Term{AttributeKey: attribute}
		err := r.Scan(&t.ID, &t.Name, &t.Slug)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// --- Settings ---

func (s *Store) CustomAttributes(ctx context.Context) ([]core.AttributeDef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name, key, label, hierarchical FROM custom_attributes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load custom attributes: %w", err)
	}
	defs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.AttributeDef, error) {
		var d core.AttributeDef
		err := r.Scan(&d.Column, &d.Key, &d.Label, &d.Hierarchical)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("load custom attributes: %w", err)
	}
	return defs, nil
}

func (s *Store) SaveCustomAttributes(ctx context.Context, defs []core.AttributeDef) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM custom_attributes`); err != nil {
			return fmt.Errorf("clear custom attributes: %w", err)
		}
		rows := make([][]any, len(defs))
		for i, d := range defs {
			rows[i] = []any{i, d.Column, d.Key, d.Label, d.Hierarchical}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"custom_attributes"},
			[]string{"position", "column_name", "key", "label", "hierarchical"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("save custom attributes: %w", err)
		}
		return nil
	})
}

func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, settingDeleteOnUninstall).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	enabled, _ := strconv.ParseBool(value)
	return core.Settings{DeleteOnUninstall: enabled}, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.Settings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		settingDeleteOnUninstall, strconv.FormatBool(settings.DeleteOnUninstall))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Purge deletes terms, assignments, custom attributes and settings in one
// transaction. Products stay.
func (s *Store) Purge(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE product_terms, terms, custom_attributes, settings`); err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		return nil
	})
}
