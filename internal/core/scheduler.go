package core

// scheduler.go runs background maintenance for a long-lived service.
//
// Each cycle:
//  1. Drops finished import reports older than the report TTL
//  2. Removes spooled upload files left behind by crashed requests
//
// The loop stops when the context is cancelled. Failures are logged and the
// next cycle runs as usual.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// spoolPattern matches the temporary files ImportUpload creates.
const spoolPattern = "catalog-import-*"

// MaintenanceConfig holds configuration for the maintenance loop.
// Zero fields take defaults.
type MaintenanceConfig struct {
	ReportTTL     time.Duration // Report age before it is dropped (default: 24h)
	SpoolMaxAge   time.Duration // Spool file age before removal (default: 1h)
	CheckInterval time.Duration // How often to run (default: 15m)
}

func (c MaintenanceConfig) withDefaults() MaintenanceConfig {
	if c.ReportTTL <= 0 {
		c.ReportTTL = 24 * time.Hour
	}
	if c.SpoolMaxAge <= 0 {
		c.SpoolMaxAge = time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 15 * time.Minute
	}
	return c
}

// StartMaintenance runs one maintenance cycle immediately, then one every
// CheckInterval until ctx is cancelled. It blocks; run it in a goroutine.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	cfg = cfg.withDefaults()
	slog.Info("maintenance started",
		"report_ttl", cfg.ReportTTL.String(),
		"spool_max_age", cfg.SpoolMaxAge.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.RunMaintenance(cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance stopped")
			return
		case <-ticker.C:
			s.RunMaintenance(cfg)
		}
	}
}

// RunMaintenance performs one cycle and returns what it removed.
func (s *Service) RunMaintenance(cfg MaintenanceConfig) (reports, files int) {
	cfg = cfg.withDefaults()
	start := time.Now()
	now := s.now()

	reports = s.pruneReports(now.Add(-cfg.ReportTTL))
	files = s.sweepSpool(now.Add(-cfg.SpoolMaxAge))

	slog.Debug("maintenance cycle completed",
		"reports_dropped", reports,
		"spool_files_removed", files,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reports, files
}

// pruneReports drops reports started before cutoff.
func (s *Service) pruneReports(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	dropped := 0
	for _, id := range s.order {
		if s.reports[id].StartedAt.Before(cutoff) {
			delete(s.reports, id)
			dropped++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return dropped
}

// sweepSpool removes spool files last modified before cutoff.
func (s *Service) sweepSpool(cutoff time.Time) int {
	dir := s.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	matches, err := filepath.Glob(filepath.Join(dir, spoolPattern))
	if err != nil {
		slog.Error("spool sweep failed", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("spool file not removed", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed
}
