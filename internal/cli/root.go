// Package cli provides the catalogsync command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsync/internal/application"
	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/logging"
)

// Version is set at build time.
var Version = "0.1.0"

type configKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalogsync",
		Short: "Bulk import and export of a product catalog",
		Long: `catalogsync keeps a product catalog in sync with a spreadsheet.

Products are matched by their Identifier column. Attribute columns hold one
term per product; unknown terms are created during import.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			_ = godotenv.Overload()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("catalog", "", "catalog file (default: ./catalog.yaml if present)")
	flags.String("catalog-name", "", "catalog name, overrides the catalog file")
	flags.String("store", "", "store driver: memory, sqlite or postgres")
	flags.String("sqlite-path", "", "SQLite database path")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	_ = root.RegisterFlagCompletionFunc("store", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.DriverMemory, config.DriverSQLite, config.DriverPostgres}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newImportCmd(),
		newExportCmd(),
		newTemplateCmd(),
		newAttributesCmd(),
		newTermsCmd(),
		newSettingsCmd(),
		newPurgeCmd(),
		newServeCmd(),
	)
	return root
}

// loadConfig reads the environment and applies the persistent flags that
// were set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()
	overrides := []struct {
		name string
		dst  *string
	}{
		{"catalog", &cfg.Catalog.File},
		{"store", &cfg.Store.Driver},
		{"sqlite-path", &cfg.Store.SQLitePath},
		{"log-level", &cfg.Logging.Level},
	}
	changed := false
	for _, o := range overrides {
		if !flags.Changed(o.name) {
			continue
		}
		v, err := flags.GetString(o.name)
		if err != nil {
			return nil, err
		}
		*o.dst = v
		changed = true
	}
	if changed {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg, nil
	}
	return nil, errors.New("configuration not loaded")
}

// openApp starts the catalog for a command. The caller closes it.
func openApp(cmd *cobra.Command) (*application.App, error) {
	cfg, err := configFrom(cmd)
	if err != nil {
		return nil, err
	}
	return application.New(cmd.Context(), cfg, cmd.Root().PersistentFlags())
}
