package core

// validation.go provides row-level validation for spreadsheet data before reconciliation.
//
// Validation happens at two levels:
//  1. Header validation (headers.go): the header row must match the registry exactly
//  2. Row validation: each data row is normalized and checked, first failure wins
//
// Row checks run in a fixed order: empty row, identifier, in-file duplicate,
// title, price, attribute values. A rejected row never reaches the store.

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Row rejection reasons shown to users.
const (
	reasonEmptyRow          = "Empty row - all cells are blank"
	reasonIdentifierEmpty   = "SKU is empty or contains only invalid characters"
	reasonIdentifierInvalid = "Invalid SKU format (allowed: alphanumeric, dots, dashes, underscores, max 100 chars)"
	reasonTitleEmpty        = "Product title cannot be empty"
	reasonTitleTooLong      = "Product title is too long (max 200 characters)"
	reasonPriceInvalid      = "Invalid price format. Price must be a positive number (e.g., 10.50 or 10,50)"
)

// forbiddenTermChars may not appear in term names.
const forbiddenTermChars = `<>"'`

// RowValidator validates and normalizes rows of one import run.
// It remembers accepted identifiers to detect in-file duplicates, so use a
// fresh validator per run.
type RowValidator struct {
	registry *SchemaRegistry
	seen     map[string]int // identifier -> row of first occurrence
}

// NewRowValidator creates a validator bound to a registry snapshot.
func NewRowValidator(registry *SchemaRegistry) *RowValidator {
	return &RowValidator{
		registry: registry,
		seen:     make(map[string]int),
	}
}

// Validate checks a row and returns the normalized product, or the reason the
// row must be ignored.
func (v *RowValidator) Validate(row SpreadsheetRow) (ValidatedProduct, *RowRejection) {
	reject := func(id string, code RejectCode, reason string) (ValidatedProduct, *RowRejection) {
		return ValidatedProduct{}, &RowRejection{Row: row.Number, Identifier: id, Code: code, Reason: reason}
	}

	if isEmptyRow(row.Values) {
		return reject("", RejectEmptyRow, reasonEmptyRow)
	}

	id := SanitizeIdentifier(row.Get(ColumnIdentifier))
	if id == "" {
		return reject("", RejectInvalidIdentifier, reasonIdentifierEmpty)
	}
	if len(id) > MaxIdentifierLength {
		return reject(id, RejectInvalidIdentifier, reasonIdentifierInvalid)
	}

	if first, dup := v.seen[id]; dup {
		return reject(id, RejectDuplicate, fmt.Sprintf("Duplicate SKU in file (first occurrence at row %d)", first))
	}
	v.seen[id] = row.Number

	title := strings.TrimSpace(row.Get(ColumnTitle))
	if title == "" {
		return reject(id, RejectInvalidTitle, reasonTitleEmpty)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return reject(id, RejectInvalidTitle, reasonTitleTooLong)
	}

	price, ok := NormalizePrice(row.Get(ColumnPrice))
	if !ok {
		return reject(id, RejectInvalidPrice, reasonPriceInvalid)
	}

	attrs := make(map[string]string)
	for _, column := range row.columns() {
		if isRequiredColumn(column) {
			continue
		}
		value := strings.TrimSpace(row.Values[column])
		if value == "" {
			continue
		}
		if err := ValidateTermName(value); err != nil {
			return reject(id, RejectInvalidAttribute, fmt.Sprintf("Taxonomy term %q for column %q %s", abbreviate(value, 50), column, err))
		}
		key, err := v.registry.ResolveAttributeKey(column)
		if err != nil {
			return reject(id, RejectInvalidAttribute, fmt.Sprintf("Invalid taxonomy column %q: %s", column, err))
		}
		attrs[key] = value
	}

	return ValidatedProduct{
		Row:         row.Number,
		Identifier:  id,
		Title:       title,
		Description: strings.TrimSpace(row.Get(ColumnDescription)),
		Price:       price,
		Attributes:  attrs,
	}, nil
}

// termError describes an invalid term value; Error completes a sentence
// starting with the term.
type termError string

func (e termError) Error() string { return string(e) }

// ValidateTermName checks a term value for length and forbidden characters.
func ValidateTermName(name string) error {
	if utf8.RuneCountInString(name) > MaxTermLength {
		return termError(fmt.Sprintf("is too long (max %d characters)", MaxTermLength))
	}
	if strings.ContainsAny(name, forbiddenTermChars) {
		return termError(`contains invalid characters (< > " ' are not allowed)`)
	}
	return nil
}

// columns returns header order, falling back to sorted keys for rows built by hand.
func (r SpreadsheetRow) columns() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	cols := make([]string, 0, len(r.Values))
	for c := range r.Values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// abbreviate shortens s to n runes followed by "..." when it is longer.
func abbreviate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
