package core

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SchemaRegistry is the column contract of the spreadsheet: the fixed
// required columns followed by every registered attribute column.
//
// A registry is immutable. WithAttribute returns a new value, so a run that
// captured a registry sees the same columns from start to finish.
type SchemaRegistry struct {
	attrs    []AttributeDef
	byColumn map[string]int
	byKey    map[string]int
}

// RequiredColumns returns the fixed leading columns.
func RequiredColumns() []string {
	return []string{ColumnIdentifier, ColumnTitle, ColumnDescription, ColumnPrice}
}

func isRequiredColumn(name string) bool {
	return slices.Contains(RequiredColumns(), name)
}

// NewSchemaRegistry builds a registry from attribute definitions, in order.
// Built-in definitions normally come first, custom ones after.
func NewSchemaRegistry(groups ...[]AttributeDef) (*SchemaRegistry, error) {
	r := &SchemaRegistry{
		byColumn: make(map[string]int),
		byKey:    make(map[string]int),
	}
	for _, defs := range groups {
		for _, def := range defs {
			if err := r.add(def); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// MustSchemaRegistry is like NewSchemaRegistry but panics on invalid definitions.
func MustSchemaRegistry(groups ...[]AttributeDef) *SchemaRegistry {
	r, err := NewSchemaRegistry(groups...)
	if err != nil {
		panic(fmt.Sprintf("schema registry: %v", err))
	}
	return r
}

func (r *SchemaRegistry) add(def AttributeDef) error {
	def.Column = strings.TrimSpace(def.Column)
	switch {
	case def.Column == "":
		return fmt.Errorf("attribute column name is empty")
	case strings.Contains(def.Column, HeaderSeparator):
		return fmt.Errorf("attribute column %q must not contain %q", def.Column, HeaderSeparator)
	case isRequiredColumn(def.Column):
		return fmt.Errorf("attribute column %q collides with a required column", def.Column)
	case def.Key == "" || len(def.Key) > MaxAttributeKeyLen:
		return fmt.Errorf("attribute %q: key %q must be 1-%d chars", def.Column, def.Key, MaxAttributeKeyLen)
	}
	if _, dup := r.byColumn[def.Column]; dup {
		return fmt.Errorf("attribute column already registered: %s", def.Column)
	}
	if _, dup := r.byKey[def.Key]; dup {
		return fmt.Errorf("attribute key already registered: %s", def.Key)
	}
	if def.Label == "" {
		def.Label = DefaultLabel(def.Column)
	}

	r.byColumn[def.Column] = len(r.attrs)
	r.byKey[def.Key] = len(r.attrs)
	r.attrs = append(r.attrs, def)
	return nil
}

// RequiredColumns returns the fixed leading columns.
func (r *SchemaRegistry) RequiredColumns() []string {
	return RequiredColumns()
}

// AttributeColumns returns every registered attribute column in registry order.
func (r *SchemaRegistry) AttributeColumns() []string {
	cols := make([]string, len(r.attrs))
	for i, a := range r.attrs {
		cols[i] = a.Column
	}
	return cols
}

// Attributes returns a copy of the attribute definitions in registry order.
func (r *SchemaRegistry) Attributes() []AttributeDef {
	out := make([]AttributeDef, len(r.attrs))
	copy(out, r.attrs)
	return out
}

// Headers returns required columns followed by attribute columns.
func (r *SchemaRegistry) Headers() []string {
	return append(RequiredColumns(), r.AttributeColumns()...)
}

// Len returns the number of attribute columns.
func (r *SchemaRegistry) Len() int {
	return len(r.attrs)
}

// IsAttributeColumn reports whether column is a registered attribute column.
func (r *SchemaRegistry) IsAttributeColumn(column string) bool {
	_, ok := r.byColumn[column]
	return ok
}

// ResolveAttributeKey returns the key for a registered column name.
func (r *SchemaRegistry) ResolveAttributeKey(column string) (string, error) {
	i, ok := r.byColumn[column]
	if !ok {
		return "", &UnknownColumnError{Column: column}
	}
	return r.attrs[i].Key, nil
}

// EnsureColumn returns the key for column. Columns are never registered from
// import data: an unknown column fails with UnknownColumnError.
func (r *SchemaRegistry) EnsureColumn(column string) (string, error) {
	return r.ResolveAttributeKey(strings.TrimSpace(column))
}

// Lookup returns the definition registered under key.
func (r *SchemaRegistry) Lookup(key string) (AttributeDef, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return AttributeDef{}, false
	}
	return r.attrs[i], true
}

// WithAttribute returns a registry extended by a new attribute column with a
// generated unique key. If the column is already registered the receiver and
// the existing definition are returned.
func (r *SchemaRegistry) WithAttribute(column string, hierarchical bool) (*SchemaRegistry, AttributeDef, error) {
	column = strings.TrimSpace(column)
	if i, ok := r.byColumn[column]; ok {
		return r, r.attrs[i], nil
	}

	taken := make(map[string]bool, len(r.byKey))
	for k := range r.byKey {
		taken[k] = true
	}
	def := AttributeDef{
		Column:       column,
		Key:          UniqueKey(column, taken),
		Label:        DefaultLabel(column),
		Hierarchical: hierarchical,
	}

	next, err := NewSchemaRegistry(r.attrs, []AttributeDef{def})
	if err != nil {
		return nil, AttributeDef{}, err
	}
	return next, def, nil
}

// DefaultLabel title-cases a column name: "QUANTITY PER BOX" -> "Quantity Per Box".
func DefaultLabel(column string) string {
	words := strings.Fields(strings.TrimRight(strings.TrimSpace(column), ":"))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
