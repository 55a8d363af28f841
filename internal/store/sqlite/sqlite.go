// Package sqlite is a core.Store backed by a single SQLite file, using the
// pure Go modernc.org/sqlite driver. It suits the CLI and small deployments.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/store/sqlbuild"
)

//go:embed migrations/*.sql
var migrations embed.FS

const settingDeleteOnUninstall = "delete_on_uninstall"

// Store implements core.Store on a database/sql handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: SQLite allows a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

func isUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// --- Products ---

const productColumns = "products.id, products.identifier, products.title, products.description, products.price, products.updated_at"

func scanProduct(row interface{ Scan(...any) error }) (core.Product, error) {
	var p core.Product
	err := row.Scan(&p.ID, &p.Identifier, &p.Title, &p.Description, &p.Price, &p.UpdatedAt)
	return p, err
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (core.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE identifier = ?", identifier))
	if errors.Is(err, sql.ErrNoRows) {
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
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (identifier, title, description, price, updated_at) VALUES (?, ?, ?, ?, ?)`,
		f.Identifier, f.Title, f.Description, f.Price, s.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert product %q: %w", f.Identifier, err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, f core.ProductFields) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET title = ?, description = ?, price = ?, updated_at = ? WHERE id = ?`,
		f.Title, f.Description, f.Price, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	where, args := sqlbuild.ProductFilter(filter, sqlbuild.Question, 0)
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products "+where+" ORDER BY products.id", args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		out []core.Product
		ids []int64
	)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
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

// termBatch bounds the bind parameters of one loadTerms query.
const termBatch = 500

// loadTerms returns assigned terms per product, in assignment order.
func (s *Store) loadTerms(ctx context.Context, productIDs []int64) (map[int64]map[string][]core.Term, error) {
	out := make(map[int64]map[string][]core.Term, len(productIDs))
	for _, id := range productIDs {
		out[id] = make(map[string][]core.Term)
	}

	for start := 0; start < len(productIDs); start += termBatch {
		batch := productIDs[start:min(start+termBatch, len(productIDs))]
		if err := s.loadTermBatch(ctx, batch, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadTermBatch(ctx context.Context, ids []int64, out map[int64]map[string][]core.Term) error {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.product_id, t.id, t.attribute, t.name, t.slug
		FROM product_terms pt
		JOIN terms t ON t.id = pt.term_id
		WHERE pt.product_id IN (`+marks+`)
		ORDER BY pt.product_id, pt.attribute, pt.position`, args...)
	if err != nil {
		return fmt.Errorf("load product terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid int64
			t   core.Term
		)
		if err := rows.Scan(&pid, &t.ID, &t.AttributeKey, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("scan product term: %w", err)
		}
		out[pid][t.AttributeKey] = append(out[pid][t.AttributeKey], t)
	}
	return rows.Err()
}

// --- Terms ---

func (s *Store) FindTermByName(ctx context.Context, attribute, name string) (core.Term, error) {
	t := core.Term{AttributeKey: attribute}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM terms WHERE attribute = ? AND name = ?`, attribute, name,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Term{}, core.ErrNotFound
	}
	if err != nil {
		return core.Term{}, fmt.Errorf("find term %q: %w", name, err)
	}
	return t, nil
}

func (s *Store) CreateTerm(ctx context.Context, attribute, name, slug string) (core.Term, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Term{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	unique, err := uniqueSlug(ctx, tx, attribute, slug)
	if err != nil {
		return core.Term{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO terms (attribute, name, slug) VALUES (?, ?, ?)`, attribute, name, unique)
	if isUnique(err) {
		return core.Term{}, core.ErrTermExists
	}
	if err != nil {
		return core.Term{}, fmt.Errorf("insert term %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Term{}, fmt.Errorf("insert term %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Term{}, fmt.Errorf("commit: %w", err)
	}
	return core.Term{ID: id, AttributeKey: attribute, Name: name, Slug: unique}, nil
}

// uniqueSlug suffixes -2, -3, ... while another term of the attribute holds the slug.
func uniqueSlug(ctx context.Context, tx *sql.Tx, attribute, slug string) (string, error) {
	candidate := slug
	for n := 2; ; n++ {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM terms WHERE attribute = ? AND slug = ?`, attribute, candidate).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		candidate = slug + "-" + strconv.Itoa(n)
	}
}

func (s *Store) AssignTerms(ctx context.Context, productID int64, attribute string, termIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_terms WHERE product_id = ? AND attribute = ?`, productID, attribute); err != nil {
		return fmt.Errorf("clear terms: %w", err)
	}
	for i, tid := range termIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_terms (product_id, attribute, term_id, position) VALUES (?, ?, ?, ?)`,
			productID, attribute, tid, i); err != nil {
			return fmt.Errorf("assign term %d: %w", tid, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListTerms(ctx context.Context, attribute string) ([]core.Term, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug FROM terms WHERE attribute = ? ORDER BY name`, attribute)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	var out []core.Term
	for rows.Next() {
		t := core.Term{AttributeKey: attribute}
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Settings ---

func (s *Store) CustomAttributes(ctx context.Context) ([]core.AttributeDef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT column_name, key, label, hierarchical FROM custom_attributes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load custom attributes: %w", err)
	}
	defer rows.Close()

	var out []core.AttributeDef
	for rows.Next() {
		var d core.AttributeDef
		if err := rows.Scan(&d.Column, &d.Key, &d.Label, &d.Hierarchical); err != nil {
			return nil, fmt.Errorf("scan custom attribute: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveCustomAttributes(ctx context.Context, defs []core.AttributeDef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_attributes`); err != nil {
		return fmt.Errorf("clear custom attributes: %w", err)
	}
	for i, d := range defs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO custom_attributes (position, column_name, key, label, hierarchical) VALUES (?, ?, ?, ?, ?)`,
			i, d.Column, d.Key, d.Label, d.Hierarchical); err != nil {
			return fmt.Errorf("save custom attribute %q: %w", d.Column, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, settingDeleteOnUninstall).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	enabled, _ := strconv.ParseBool(value)
	return core.Settings{DeleteOnUninstall: enabled}, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		settingDeleteOnUninstall, strconv.FormatBool(settings.DeleteOnUninstall))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Purge deletes terms, assignments, custom attributes and settings in one
// transaction. Products stay.
func (s *Store) Purge(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"product_terms", "terms", "custom_attributes", "settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return tx.Commit()
}
