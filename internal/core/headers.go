package core

import (
	"slices"
	"strings"
)

// HeaderIndex maps each surviving header to its original column position.
// Blank header cells are dropped but do not shift the positions of later columns.
type HeaderIndex struct {
	Names     []string
	Positions []int
}

// ParseHeaders cleans a raw header row: each cell is trimmed, a trailing
// separators are stripped, and blank cells are dropped while the original
// column position of every kept header is remembered.
func ParseHeaders(cells []string) HeaderIndex {
	var idx HeaderIndex
	for pos, cell := range cells {
		name := strings.TrimSpace(CleanCell(cell))
		name = strings.TrimSpace(strings.TrimRight(name, HeaderSeparator+" \t"))
		if name == "" {
			continue
		}
		idx.Names = append(idx.Names, name)
		idx.Positions = append(idx.Positions, pos)
	}
	return idx
}

// ValidateHeaders checks that headers are exactly the registry's required and
// attribute columns. Order is not checked. Checks run in order: blank row,
// duplicates, missing required, unexpected extras, missing attributes.
func ValidateHeaders(headers []string, registry *SchemaRegistry) error {
	if len(headers) == 0 {
		return &SchemaError{Kind: SchemaEmptyHeader}
	}

	seen := make(map[string]bool, len(headers))
	var dups []string
	for _, h := range headers {
		if seen[h] && !slices.Contains(dups, h) {
			dups = append(dups, h)
		}
		seen[h] = true
	}
	if len(dups) > 0 {
		return &SchemaError{Kind: SchemaDuplicateColumns, Columns: dups}
	}

	var missing []string
	for _, c := range RequiredColumns() {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Kind: SchemaMissingRequired, Columns: missing}
	}

	var extra []string
	for _, h := range headers {
		if !isRequiredColumn(h) && !registry.IsAttributeColumn(h) {
			extra = append(extra, h)
		}
	}
	if len(extra) > 0 {
		return &SchemaError{Kind: SchemaUnexpectedColumns, Columns: extra, Allowed: registry.Headers()}
	}

	var missingAttrs []string
	for _, c := range registry.AttributeColumns() {
		if !seen[c] {
			missingAttrs = append(missingAttrs, c)
		}
	}
	if len(missingAttrs) > 0 {
		return &SchemaError{Kind: SchemaMissingAttributes, Columns: missingAttrs, Allowed: registry.Headers()}
	}

	return nil
}

// buildRow maps cells onto headers by original position. Short rows yield
// empty strings for absent cells.
func (idx HeaderIndex) buildRow(number int, cells []string) SpreadsheetRow {
	values := make(map[string]string, len(idx.Names))
	for i, name := range idx.Names {
		var v string
		if pos := idx.Positions[i]; pos < len(cells) {
			v = CleanCell(cells[pos])
		}
		values[name] = v
	}
	return SpreadsheetRow{Number: number, Values: values, Columns: idx.Names}
}
