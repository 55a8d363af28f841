package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultCatalogFile is looked up in the working directory when no path is given.
const DefaultCatalogFile = "catalog.yaml"

// CatalogFile is the catalog.yaml document: the catalog name and the custom
// attribute columns to register on startup.
type CatalogFile struct {
	Name       string          `koanf:"name" yaml:"name"`
	Attributes []AttributeSeed `koanf:"attributes" yaml:"attributes,omitempty"`
}

// AttributeSeed declares one attribute column. Key and Label are informative
// on load; keys are always generated from the column name.
type AttributeSeed struct {
	Column       string `koanf:"column" yaml:"column"`
	Key          string `koanf:"key" yaml:"key,omitempty"`
	Label        string `koanf:"label" yaml:"label,omitempty"`
	Hierarchical bool   `koanf:"hierarchical" yaml:"hierarchical,omitempty"`
}

// LoadCatalogFile layers, lowest first: defaults from cfg, the YAML file,
// CATALOG_* environment variables, then explicitly set flags (--catalog-name).
// A missing file is only an error when path was given explicitly.
func LoadCatalogFile(path string, cfg CatalogConfig, flags *pflag.FlagSet) (*CatalogFile, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"name": cfg.Name,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load catalog defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultCatalogFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read catalog file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}

	// CATALOG_NAME -> name; blank variables do not override
	if err := k.Load(env.ProviderWithValue("CATALOG_", ".", func(key, value string) (string, any) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(key, "CATALOG_")), value
	}), nil); err != nil {
		return nil, fmt.Errorf("load catalog env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name != "catalog-name" {
				return "", nil
			}
			return "name", posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load catalog flags: %w", err)
		}
	}

	var out CatalogFile
	if err := k.Unmarshal("", &out); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		return nil, fmt.Errorf("catalog name must not be blank")
	}
	for i, a := range out.Attributes {
		if strings.TrimSpace(a.Column) == "" {
			return nil, fmt.Errorf("catalog file: attribute %d has no column", i+1)
		}
	}
	return &out, nil
}

// WriteCatalogFile encodes doc as YAML.
func WriteCatalogFile(w io.Writer, doc CatalogFile) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode catalog file: %w", err)
	}
	return enc.Close()
}
