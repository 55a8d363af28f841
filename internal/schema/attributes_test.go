package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

func TestBuiltinAttributesFormValidRegistry(t *testing.T) {
	reg, err := Registry()
	require.NoError(t, err)
	assert.Equal(t, 26, reg.Len())

	headers := reg.Headers()
	assert.Equal(t, []string{"Identifier", "Title", "Description", "Price", "QUANTITY PER BOX"}, headers[:5])
	assert.Equal(t, "% NaCl", headers[len(headers)-1])
}

func TestBuiltinAttributes_OnlyCategoryIsHierarchical(t *testing.T) {
	for _, def := range BuiltinAttributes {
		assert.Equal(t, def.Column == "CATEGORY", def.Hierarchical, def.Column)
	}
}

func TestBuiltinAttributes_KeysAreSanitized(t *testing.T) {
	for _, def := range BuiltinAttributes {
		assert.LessOrEqual(t, len(def.Key), core.MaxAttributeKeyLen, def.Key)
		assert.Equal(t, core.SanitizeKey(def.Key), def.Key)
	}
}

func TestRegistry_WithCustom(t *testing.T) {
	reg, err := Registry(core.AttributeDef{Column: "BRAND", Key: "brand", Label: "Brand"})
	require.NoError(t, err)
	assert.Equal(t, 27, reg.Len())

	key, err := reg.ResolveAttributeKey("BRAND")
	require.NoError(t, err)
	assert.Equal(t, "brand", key)

	// a custom column may not shadow a built-in key
	_, err = Registry(core.AttributeDef{Column: "GAUGE 2", Key: "gauge"})
	assert.Error(t, err)
}

func TestBuiltins_ReturnsCopy(t *testing.T) {
	b := Builtins()
	b[0].Column = "changed"
	assert.Equal(t, "QUANTITY PER BOX", BuiltinAttributes[0].Column)
}
