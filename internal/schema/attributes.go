// Package schema holds the built-in attribute columns of the catalog
// spreadsheet.
package schema

import "github.com/JonMunkholm/catalogsync/internal/core"

// BuiltinAttributes are the attribute columns every catalog starts with, in
// export order. Custom attributes registered at runtime follow them.
var BuiltinAttributes = []core.AttributeDef{
	{Column: "QUANTITY PER BOX", Key: "quantity_per_box", Label: "Quantity Per Box"},
	{Column: "DISPOSABLE/REUSABLE", Key: "disposable_reusable", Label: "Disposable/Reusable"},
	{Column: "CATEGORY", Key: "product_category", Label: "Category", Hierarchical: true},
	{Column: "STEEL & TITANIUM INSTRUMENTS FAMILIES", Key: "steel_titanium_instruments", Label: "Steel & Titanium Instruments Families"},
	{Column: "BACKFLUSH TYPE", Key: "backflush_type", Label: "Backflush Type"},
	{Column: "BACKFLUSH TIP", Key: "backflush_tip", Label: "Backflush Tip"},
	{Column: "BYPASS TYPE", Key: "bypass_type", Label: "Bypass Type"},
	{Column: "CHANDELIERS TYPE", Key: "chandeliers_type", Label: "Chandeliers Type"},
	{Column: "DOSAGE", Key: "dosage", Label: "Dosage"},
	{Column: "PACKAGING", Key: "packaging", Label: "Packaging"},
	{Column: "GAS TYPE", Key: "gas_type", Label: "Gas Type"},
	{Column: "GAUGE", Key: "gauge", Label: "Gauge"},
	{Column: "ILLUMINATION CONNECTOR FOR:", Key: "illumination_connector_for", Label: "Illumination Connector For"},
	{Column: "ILLUMINATION TYPE", Key: "illumination_type", Label: "Illumination Type"},
	{Column: "KNIVES & BLADES", Key: "knives_blades", Label: "Knives & Blades"},
	{Column: "LASER CONNECTOR", Key: "laser_connector", Label: "Laser Connector"},
	{Column: "LASER FIBER", Key: "laser_fiber", Label: "Laser Fiber"},
	{Column: "MIXING RATIO", Key: "mixing_ratio", Label: "Mixing Ratio"},
	{Column: "PIC TYPE", Key: "pic_type", Label: "PIC Type"},
	{Column: "TIP ANGLE", Key: "tip_angle", Label: "Tip Angle"},
	{Column: "TIP TYPE", Key: "tip_type", Label: "Tip Type"},
	{Column: "TUBING TYPE", Key: "tubing_type", Label: "Tubing Type"},
	{Column: "TWEEZER", Key: "tweezer", Label: "Tweezer"},
	{Column: "TWEEZER TYPE", Key: "tweezer_type", Label: "Tweezer Type"},
	{Column: "USE FOR", Key: "use_for", Label: "Use For"},
	{Column: "% NaCl", Key: "nacl_percentage", Label: "% NaCl"},
}

// Builtins returns a copy of BuiltinAttributes.
func Builtins() []core.AttributeDef {
	out := make([]core.AttributeDef, len(BuiltinAttributes))
	copy(out, BuiltinAttributes)
	return out
}

// Registry builds a registry from the built-in columns followed by custom ones.
func Registry(custom ...core.AttributeDef) (*core.SchemaRegistry, error) {
	return core.NewSchemaRegistry(BuiltinAttributes, custom)
}
