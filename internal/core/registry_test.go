package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaRegistry_Columns(t *testing.T) {
	reg := testRegistry(t)

	assert.Equal(t, []string{"Identifier", "Title", "Description", "Price"}, reg.RequiredColumns())
	assert.Equal(t, []string{"CATEGORY", "GAUGE", "MATERIAL"}, reg.AttributeColumns())
	assert.Equal(t, append(reg.RequiredColumns(), reg.AttributeColumns()...), reg.Headers())
	assert.Equal(t, 3, reg.Len())

	// order is stable across calls
	assert.Equal(t, reg.AttributeColumns(), reg.AttributeColumns())
}

func TestSchemaRegistry_ResolveAttributeKey(t *testing.T) {
	reg := testRegistry(t)

	key, err := reg.ResolveAttributeKey("GAUGE")
	require.NoError(t, err)
	assert.Equal(t, "gauge", key)

	_, err = reg.ResolveAttributeKey("COLOR")
	var colErr *UnknownColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "COLOR", colErr.Column)

	// case-sensitive
	_, err = reg.ResolveAttributeKey("gauge")
	assert.Error(t, err)
}

func TestSchemaRegistry_EnsureColumnNeverCreates(t *testing.T) {
	reg := testRegistry(t)

	key, err := reg.EnsureColumn(" CATEGORY ")
	require.NoError(t, err)
	assert.Equal(t, "product_category", key)

	_, err = reg.EnsureColumn("BRAND")
	assert.Error(t, err)
	assert.False(t, reg.IsAttributeColumn("BRAND"))
}

func TestNewSchemaRegistry_RejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []AttributeDef
	}{
		{"empty column", []AttributeDef{{Column: " ", Key: "k"}}},
		{"separator in column", []AttributeDef{{Column: "A;B", Key: "k"}}},
		{"required column", []AttributeDef{{Column: "Price", Key: "price"}}},
		{"empty key", []AttributeDef{{Column: "A", Key: ""}}},
		{"long key", []AttributeDef{{Column: "A", Key: strings.Repeat("k", 33)}}},
		{"duplicate column", []AttributeDef{{Column: "A", Key: "a"}, {Column: "A", Key: "b"}}},
		{"duplicate key", []AttributeDef{{Column: "A", Key: "a"}, {Column: "B", Key: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchemaRegistry(tt.defs)
			assert.Error(t, err)
		})
	}
}

func TestNewSchemaRegistry_FillsLabel(t *testing.T) {
	reg, err := NewSchemaRegistry([]AttributeDef{{Column: "QUANTITY PER BOX:", Key: "qty"}})
	require.NoError(t, err)

	def, ok := reg.Lookup("qty")
	require.True(t, ok)
	assert.Equal(t, "Quantity Per Box", def.Label)
}

func TestSchemaRegistry_WithAttribute(t *testing.T) {
	reg := testRegistry(t)

	next, def, err := reg.WithAttribute("Gauge Size", false)
	require.NoError(t, err)
	assert.Equal(t, "gauge_size", def.Key)
	assert.Equal(t, "Gauge Size", def.Label)
	assert.True(t, next.IsAttributeColumn("Gauge Size"))

	// receiver is unchanged
	assert.False(t, reg.IsAttributeColumn("Gauge Size"))
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, 4, next.Len())

	// registering a known column is a no-op
	same, existing, err := next.WithAttribute("GAUGE", true)
	require.NoError(t, err)
	assert.Same(t, next, same)
	assert.Equal(t, "gauge", existing.Key)
	assert.False(t, existing.Hierarchical)
}

func TestSchemaRegistry_WithAttributeKeyCollision(t *testing.T) {
	reg := testRegistry(t)

	// "Gauge!" sanitizes to "gauge", which is taken.
	next, def, err := reg.WithAttribute("Gauge!", false)
	require.NoError(t, err)
	assert.Equal(t, "gauge_2", def.Key)

	_, def3, err := next.WithAttribute("gauge?", false)
	require.NoError(t, err)
	assert.Equal(t, "gauge_3", def3.Key)
}

func TestSchemaRegistry_AttributesIsCopy(t *testing.T) {
	reg := testRegistry(t)

	attrs := reg.Attributes()
	attrs[0].Column = "CHANGED"

	assert.Equal(t, "CATEGORY", reg.Attributes()[0].Column)
}

func TestDefaultLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CATEGORY", "Category"},
		{"NEEDLE LENGTH", "Needle Length"},
		{"tips per box:", "Tips Per Box"},
		{"  spaced   out  ", "Spaced Out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultLabel(tt.in), "DefaultLabel(%q)", tt.in)
	}
}
