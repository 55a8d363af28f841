package sqlbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

func TestProductFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   core.ProductFilter
		ph       Placeholder
		offset   int
		wantSQL  string
		wantArgs []any
	}{
		{
			name:   "empty",
			filter: core.ProductFilter{},
			ph:     Question,
		},
		{
			name:   "attribute without ids is ignored",
			filter: core.ProductFilter{Terms: map[string][]int64{"gauge": nil}},
			ph:     Question,
		},
		{
			name:     "one attribute",
			filter:   core.ProductFilter{Terms: map[string][]int64{"gauge": {3, 4}}},
			ph:       Question,
			wantSQL:  "WHERE products.id IN (SELECT product_id FROM product_terms WHERE attribute = ? AND term_id IN (?, ?))",
			wantArgs: []any{"gauge", int64(3), int64(4)},
		},
		{
			name: "two attributes in key order with dollar marks",
			filter: core.ProductFilter{Terms: map[string][]int64{
				"material": {9},
				"gauge":    {3},
			}},
			ph:     Dollar,
			offset: 1,
			wantSQL: "WHERE products.id IN (SELECT product_id FROM product_terms WHERE attribute = $2 AND term_id IN ($3))" +
				" AND products.id IN (SELECT product_id FROM product_terms WHERE attribute = $4 AND term_id IN ($5))",
			wantArgs: []any{"gauge", int64(3), "material", int64(9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := ProductFilter(tt.filter, tt.ph, tt.offset)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
