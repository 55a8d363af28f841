package core

import "context"

// ProductFields are the scalar fields written on create or update.
type ProductFields struct {
	Identifier  string
	Title       string
	Description string
	Price       string
}

// CatalogStore persists products keyed by identifier.
// FindByIdentifier returns ErrNotFound when no product matches.
type CatalogStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (Product, error)
	CreateProduct(ctx context.Context, fields ProductFields) (int64, error)
	UpdateProduct(ctx context.Context, id int64, fields ProductFields) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
}

// TermStore persists attribute terms and their assignment to products.
// FindTermByName matches the exact name within one attribute and returns
// ErrNotFound when absent. CreateTerm returns ErrTermExists on a name clash.
type TermStore interface {
	FindTermByName(ctx context.Context, attribute, name string) (Term, error)
	CreateTerm(ctx context.Context, attribute, name, slug string) (Term, error)
	AssignTerms(ctx context.Context, productID int64, attribute string, termIDs []int64) error
	ListTerms(ctx context.Context, attribute string) ([]Term, error)
}

// SettingsStore persists custom attribute definitions and catalog settings.
type SettingsStore interface {
	CustomAttributes(ctx context.Context) ([]AttributeDef, error)
	SaveCustomAttributes(ctx context.Context, defs []AttributeDef) error
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
	Purge(ctx context.Context) error
}

// Store is the full persistence surface used by the service.
type Store interface {
	CatalogStore
	TermStore
	SettingsStore
	Close() error
}
