// Package application wires configuration, the catalog store and the core
// service together. The server and the CLI both start here.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/pflag"

	"github.com/JonMunkholm/catalogsync/internal/admin"
	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/schema"
	"github.com/JonMunkholm/catalogsync/internal/store/memstore"
	"github.com/JonMunkholm/catalogsync/internal/store/postgres"
	"github.com/JonMunkholm/catalogsync/internal/store/sqlite"
)

// App is a started catalog: its store and the service on top of it.
type App struct {
	Config  *config.Config
	Catalog *config.CatalogFile
	Store   core.Store
	Service *core.Service
}

// New opens the configured store, builds the service and registers the
// attribute columns declared in the catalog file. flags may be nil.
func New(ctx context.Context, cfg *config.Config, flags *pflag.FlagSet) (*App, error) {
	catalog, err := config.LoadCatalogFile(cfg.Catalog.File, cfg.Catalog, flags)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := core.NewService(ctx, store, schema.Builtins(), ServiceConfig(cfg, catalog.Name))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	for _, seed := range catalog.Attributes {
		def, created, err := svc.RegisterAttribute(ctx, seed.Column, seed.Hierarchical)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("register attribute %q: %w", seed.Column, err)
		}
		if created {
			slog.Info("attribute seeded from catalog file", "column", def.Column, "key", def.Key)
		}
	}

	slog.Info("catalog ready",
		"name", catalog.Name,
		"driver", cfg.Store.Driver,
		"attributes", svc.Registry().Len(),
	)
	return &App{Config: cfg, Catalog: catalog, Store: store, Service: svc}, nil
}

// ServiceConfig maps the import settings onto core.ServiceConfig.
func ServiceConfig(cfg *config.Config, catalogName string) core.ServiceConfig {
	exts := make([]string, len(cfg.Import.AllowedExtensions))
	for i, e := range cfg.Import.AllowedExtensions {
		exts[i] = strings.ToLower(strings.TrimPrefix(e, "."))
	}
	return core.ServiceConfig{
		CatalogName: catalogName,
		Reader: core.ReaderOptions{
			ChunkThreshold: cfg.Import.ChunkThreshold,
			ChunkSize:      cfg.Import.ChunkSize,
			ReclaimMemory:  true,
		},
		MaxFileSize:       cfg.Import.MaxFileSize,
		ImportTimeout:     cfg.Import.Timeout,
		MaxConcurrent:     cfg.Import.MaxConcurrent,
		MaxWait:           cfg.Import.MaxWaitTime,
		KeepReports:       cfg.Import.KeepReports,
		TempDir:           cfg.Import.TempDir,
		AllowedExtensions: exts,
	}
}

// OpenStore opens the store selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (core.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store; the catalog is lost on exit")
		return memstore.New(), nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "driver", "sqlite", "path", cfg.Store.SQLitePath)
		return s, nil

	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "driver", "postgres", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database", "driver", "postgres")
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// MaintenanceConfig maps the import settings onto core.MaintenanceConfig.
func (a *App) MaintenanceConfig() core.MaintenanceConfig {
	return core.MaintenanceConfig{
		ReportTTL:     a.Config.Import.ReportTTL,
		SpoolMaxAge:   a.Config.Import.SpoolMaxAge,
		CheckInterval: a.Config.Import.MaintenanceInterval,
	}
}

// Purger returns the purge operation bound to the service.
func (a *App) Purger() *admin.Purger {
	return &admin.Purger{Service: a.Service}
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
