package core

import (
	"time"
)

// Required column names, in the order the writer emits them.
const (
	ColumnIdentifier  = "Identifier"
	ColumnTitle       = "Title"
	ColumnDescription = "Description"
	ColumnPrice       = "Price"
)

// HeaderSeparator is appended to every header cell on export and stripped on import.
const HeaderSeparator = ";"

// Field limits enforced by the row validator and the add-term action.
const (
	MaxIdentifierLength = 100
	MaxTitleLength      = 200
	MaxTermLength       = 200
	MaxAttributeKeyLen  = 32
)

// AttributeDef describes one attribute column of the spreadsheet contract.
type AttributeDef struct {
	Column       string `json:"column" yaml:"column"`             // Header name, matched exactly
	Key          string `json:"key" yaml:"key"`                   // Internal attribute key (unique, <= 32 chars)
	Label        string `json:"label" yaml:"label"`               // Display label
	Hierarchical bool   `json:"hierarchical" yaml:"hierarchical"` // Terms may nest (category-like)
}

// Term is a single value stored under an attribute key.
type Term struct {
	ID           int64  `json:"term_id"`
	AttributeKey string `json:"attribute"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
}

// Product is a catalog entry as seen by the import/export engine.
// Attributes maps attribute key to the terms assigned to the product, in
// assignment order; only the first term is exported.
type Product struct {
	ID          int64
	Identifier  string
	Title       string
	Description string
	Price       string
	Attributes  map[string][]Term
	UpdatedAt   time.Time
}

// FirstTerm returns the display name of the first term assigned under key,
// or "" when nothing is assigned.
func (p Product) FirstTerm(key string) string {
	terms := p.Attributes[key]
	if len(terms) == 0 {
		return ""
	}
	return terms[0].Name
}

// SpreadsheetRow is one data row keyed by header name.
type SpreadsheetRow struct {
	Number  int               // 1-based sheet row number (data starts at 2)
	Values  map[string]string // Header -> trimmed cell value
	Columns []string          // Header order, shared by every row of a file
}

// Get returns the trimmed value for a column, or "" if the column is absent.
func (r SpreadsheetRow) Get(column string) string {
	return r.Values[column]
}

// ValidatedProduct is the normalized output of the row validator.
type ValidatedProduct struct {
	Row         int
	Identifier  string
	Title       string
	Description string
	Price       string            // Canonical decimal string, two places
	Attributes  map[string]string // Attribute key -> term name
}

// ProductFilter selects products by assigned term ids.
// Term ids within one attribute are OR'ed; attributes are AND'ed.
type ProductFilter struct {
	Terms map[string][]int64
}

// Empty reports whether the filter selects every product.
func (f ProductFilter) Empty() bool {
	for _, ids := range f.Terms {
		if len(ids) > 0 {
			return false
		}
	}
	return true
}

// Settings are the persisted catalog settings.
type Settings struct {
	DeleteOnUninstall bool `json:"delete_on_uninstall"`
}

// ImportPhase indicates the current stage of an import run.
type ImportPhase string

const (
	PhaseReading   ImportPhase = "reading"
	PhaseImporting ImportPhase = "importing"
	PhaseComplete  ImportPhase = "complete"
	PhaseFailed    ImportPhase = "failed"
	PhaseStopped   ImportPhase = "stopped"
)
