// Package admin provides destructive maintenance operations on the catalog.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// PurgeTimeout bounds a purge run.
const PurgeTimeout = 30 * time.Second

// Purger removes catalog data on uninstall.
type Purger struct {
	Service *core.Service
}

type purgeStep func(ctx context.Context) error

// Purge deletes terms, term assignments, custom attributes and settings, then
// rebuilds the registry from the builtins. Products are kept. Unless force is
// set it refuses with core.ErrPurgeDisabled when delete_on_uninstall is off.
func (p *Purger) Purge(ctx context.Context, force bool) error {
	ctx, cancel := context.WithTimeout(ctx, PurgeTimeout)
	defer cancel()

	if !force {
		settings, err := p.Service.Settings(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if !settings.DeleteOnUninstall {
			return core.ErrPurgeDisabled
		}
	}

	if err := p.run(ctx, []purgeStep{
		p.Service.Store().Purge,
		p.Service.ReloadRegistry,
	}); err != nil {
		return err
	}

	slog.Info("catalog purged", "forced", force, "attributes", p.Service.Registry().Len())
	return nil
}

func (p *Purger) run(ctx context.Context, steps []purgeStep) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return fmt.Errorf("purge: %w", err)
		}
	}
	return nil
}
