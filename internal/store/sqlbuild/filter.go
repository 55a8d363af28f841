// Package sqlbuild builds the SQL fragments shared by the SQL catalog stores.
package sqlbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders "?" placeholders (SQLite).
func Question(int) string { return "?" }

// Dollar renders "$n" placeholders (Postgres).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// ProductFilter renders a WHERE clause selecting products by assigned term
// ids: IN within an attribute, AND across attributes. Attributes are
// rendered in key order so the SQL is stable. An empty filter renders "".
// The products table must be reachable as products.id.
func ProductFilter(f core.ProductFilter, ph Placeholder, argOffset int) (string, []any) {
	keys := make([]string, 0, len(f.Terms))
	for k, ids := range f.Terms {
		if len(ids) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", nil
	}
	sort.Strings(keys)

	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return ph(argOffset + len(args))
	}

	for _, key := range keys {
		attr := next(key)
		marks := make([]string, len(f.Terms[key]))
		for i, id := range f.Terms[key] {
			marks[i] = next(id)
		}
		conds = append(conds, fmt.Sprintf(
			"products.id IN (SELECT product_id FROM product_terms WHERE attribute = %s AND term_id IN (%s))",
			attr, strings.Join(marks, ", "),
		))
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
