package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxFileSize is the upload size limit.
const DefaultMaxFileSize = 10 << 20

// DefaultKeepReports is how many finished reports stay retrievable by id.
const DefaultKeepReports = 20

// ServiceConfig tunes a Service. Zero fields take defaults.
type ServiceConfig struct {
	CatalogName   string
	Reader        ReaderOptions
	MaxFileSize   int64
	ImportTimeout time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
	KeepReports   int
	TempDir       string

	// AllowedExtensions restricts upload types; defaults to AllowedExtensions.
	AllowedExtensions []string
}

// ImportOptions adjust a single import run.
type ImportOptions struct {
	FileName string // Display name; defaults to the base of the path
	DryRun   bool   // Count changes without writing
}

// Service is the import/export facade shared by the CLI and the web server.
// It owns the current registry snapshot and the recent import reports.
type Service struct {
	store    Store
	builtins []AttributeDef
	cfg      ServiceConfig
	limiter  *ImportLimiter
	now      func() time.Time

	registry atomic.Pointer[SchemaRegistry]
	regMu    sync.Mutex // serializes registry changes

	mu      sync.RWMutex
	reports map[string]*ImportReport
	order   []string
}

// NewService loads custom attributes from the store and builds the first
// registry snapshot from builtins followed by the custom list.
func NewService(ctx context.Context, store Store, builtins []AttributeDef, cfg ServiceConfig) (*Service, error) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.KeepReports <= 0 {
		cfg.KeepReports = DefaultKeepReports
	}
	if cfg.Reader == (ReaderOptions{}) {
		cfg.Reader = DefaultReaderOptions()
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = AllowedExtensions
	}

	s := &Service{
		store:    store,
		builtins: slices.Clone(builtins),
		cfg:      cfg,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		now:      time.Now,
		reports:  make(map[string]*ImportReport),
	}
	if err := s.ReloadRegistry(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Limiter returns the import concurrency gate.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// CatalogName returns the configured catalog name.
func (s *Service) CatalogName() string {
	return s.cfg.CatalogName
}

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// Registry returns the current registry snapshot.
func (s *Service) Registry() *SchemaRegistry {
	return s.registry.Load()
}

// ReloadRegistry rebuilds the registry from builtins and the stored custom list.
func (s *Service) ReloadRegistry(ctx context.Context) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	custom, err := s.store.CustomAttributes(ctx)
	if err != nil {
		return fmt.Errorf("load custom attributes: %w", err)
	}
	reg, err := NewSchemaRegistry(s.builtins, custom)
	if err != nil {
		return fmt.Errorf("build schema registry: %w", err)
	}
	s.registry.Store(reg)
	return nil
}

// RegisterAttribute adds a custom attribute column, persists the custom list
// and swaps in a new registry. Registering a known column returns its
// existing definition and created=false.
func (s *Service) RegisterAttribute(ctx context.Context, column string, hierarchical bool) (def AttributeDef, created bool, err error) {
	column = strings.TrimSpace(column)
	if column == "" {
		return AttributeDef{}, false, fmt.Errorf("%w: column name", ErrMissingInput)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	cur := s.registry.Load()
	next, def, err := cur.WithAttribute(column, hierarchical)
	if err != nil {
		return AttributeDef{}, false, err
	}
	if next == cur {
		return def, false, nil
	}

	custom, err := s.store.CustomAttributes(ctx)
	if err != nil {
		return AttributeDef{}, false, fmt.Errorf("load custom attributes: %w", err)
	}
	if err := s.store.SaveCustomAttributes(ctx, append(custom, def)); err != nil {
		return AttributeDef{}, false, fmt.Errorf("save custom attributes: %w", err)
	}

	s.registry.Store(next)
	slog.Info("attribute registered", "column", def.Column, "key", def.Key, "hierarchical", def.Hierarchical)
	return def, true, nil
}

// ImportFile reads the spreadsheet at path and reconciles it with the catalog.
//
// The returned report is non-nil whenever the run started. A file or header
// failure is recorded in the report and also returned as the error; row
// failures only appear as ignored rows.
func (s *Service) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.ImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ImportTimeout)
		defer cancel()
	}

	name := opts.FileName
	if name == "" {
		name = filepath.Base(path)
	}

	report := NewImportReport(uuid.New().String(), name)
	report.DryRun = opts.DryRun
	report.Actor = ActorFromContext(ctx)

	reg := s.Registry()
	reader := NewSpreadsheetReader(reg, s.cfg.Reader)
	if info, err := os.Stat(path); err == nil {
		report.Chunked = reader.Chunked(info.Size())
	}

	logger := slog.With("import_id", report.ID, "file", name)
	if report.Actor != "" {
		logger = logger.With("actor", report.Actor, "ip", IPAddressFromContext(ctx))
	}
	logger.Info("import started", "chunked", report.Chunked, "dry_run", opts.DryRun)

	engine := NewReconciliationEngine(s.store, s.store, reg).DryRun(opts.DryRun)
	validator := NewRowValidator(reg)

	err := reader.Each(path, func(row SpreadsheetRow) error {
		if err := ctx.Err(); err != nil {
			report.Stop(row.Number)
			return err
		}
		report.Phase = PhaseImporting
		engine.ApplyRow(ctx, validator, row, report)
		return nil
	})
	switch {
	case report.Truncated:
		logger.Warn("import stopped", "at_row", report.StoppedAtRow, "error", err)
	case err != nil:
		report.AddError(err.Error())
	}
	report.Finish()
	s.keep(report)

	logger.Info("import finished",
		"phase", report.Phase,
		"created", report.Created,
		"updated", report.Updated,
		"terms_created", report.TermsAdded,
		"rows_ignored", report.RowsIgnored(),
		"duration_ms", report.Duration.Milliseconds(),
	)
	for _, ig := range report.IgnoredRows {
		logger.Debug("row ignored", "row", ig.Row, "sku", ig.SKU, "reason", ig.Reason)
	}
	return report, err
}

// ValidateUpload checks an uploaded file's name and size before any bytes are read.
func (s *Service) ValidateUpload(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return ErrNoFile
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !slices.Contains(s.cfg.AllowedExtensions, ext) {
		return &FormatError{
			Msg: fmt.Sprintf("Invalid file type %q. Allowed formats: %s.", ext, strings.Join(s.cfg.AllowedExtensions, ", ")),
			Err: ErrUnsupportedFormat,
		}
	}

	if size > s.cfg.MaxFileSize {
		return fmt.Errorf("%w: file size exceeds maximum allowed size of %dMB",
			ErrFileTooLarge, s.cfg.MaxFileSize>>20)
	}
	if size == 0 {
		return &IOError{Path: name, Msg: "Uploaded file is empty."}
	}
	return nil
}

// ImportUpload validates an uploaded file, spools it to a temporary file and
// imports it.
func (s *Service) ImportUpload(ctx context.Context, name string, size int64, body io.Reader, opts ImportOptions) (*ImportReport, error) {
	path, err := s.spoolUpload(name, size, body)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	if opts.FileName == "" {
		opts.FileName = filepath.Base(name)
	}
	return s.ImportFile(ctx, path, opts)
}

// spoolUpload validates an upload and copies it to a temporary file that
// keeps the upload's extension, so format detection behaves as for files on
// disk. The caller removes the file.
func (s *Service) spoolUpload(name string, size int64, body io.Reader) (string, error) {
	if body == nil {
		return "", ErrNoFile
	}
	if err := s.ValidateUpload(name, size); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.cfg.TempDir, spoolPattern+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return "", &IOError{Path: name, Msg: "Failed to store uploaded file.", Err: err}
	}

	n, err := io.Copy(tmp, io.LimitReader(body, s.cfg.MaxFileSize+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", &IOError{Path: name, Msg: "Failed to store uploaded file.", Err: err}
	}
	if n > s.cfg.MaxFileSize {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: file size exceeds maximum allowed size of %dMB",
			ErrFileTooLarge, s.cfg.MaxFileSize>>20)
	}
	return tmp.Name(), nil
}

// Export builds a workbook of the whole catalog and its download name.
// An empty catalog fails with ErrNoProducts.
func (s *Service) Export(ctx context.Context) (*excelize.File, string, error) {
	products, err := s.store.ListProducts(ctx, ProductFilter{})
	if err != nil {
		return nil, "", fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, "", ErrNoProducts
	}

	f, err := NewSpreadsheetWriter(s.Registry()).Write(products)
	if err != nil {
		return nil, "", fmt.Errorf("build export: %w", err)
	}

	slog.Info("catalog exported", "products", len(products))
	return f, ExportFilename(s.cfg.CatalogName, s.now()), nil
}

// ExportToFile writes the export to path. An empty path or a directory
// receives the generated file name. It returns the written path.
func (s *Service) ExportToFile(ctx context.Context, path string) (string, error) {
	f, name, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path = targetPath(path, name)
	if err := SaveToPath(f, path); err != nil {
		return "", err
	}
	return path, nil
}

// Template builds a header-only workbook and its download name.
func (s *Service) Template() (*excelize.File, string, error) {
	f, err := NewSpreadsheetWriter(s.Registry()).Template()
	if err != nil {
		return nil, "", fmt.Errorf("build template: %w", err)
	}
	return f, TemplateFilename(s.cfg.CatalogName), nil
}

// TemplateToFile writes the template to path, following ExportToFile's path rules.
func (s *Service) TemplateToFile(path string) (string, error) {
	f, name, err := s.Template()
	if err != nil {
		return "", err
	}
	defer f.Close()

	path = targetPath(path, name)
	if err := SaveToPath(f, path); err != nil {
		return "", err
	}
	return path, nil
}

func targetPath(path, name string) string {
	if path == "" {
		return name
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, name)
	}
	return path
}

// AddTerm creates a term under a registered attribute. The name must be
// non-empty, short enough and free of markup characters; an existing name
// fails with ErrTermExists.
func (s *Service) AddTerm(ctx context.Context, attribute, name string) (Term, error) {
	attribute = strings.TrimSpace(attribute)
	name = strings.TrimSpace(name)
	if attribute == "" || name == "" {
		return Term{}, fmt.Errorf("%w: attribute and term name", ErrMissingInput)
	}
	if err := ValidateTermName(name); err != nil {
		return Term{}, fmt.Errorf("%w: term %s", ErrInvalidTerm, err)
	}
	if _, ok := s.Registry().Lookup(attribute); !ok {
		return Term{}, fmt.Errorf("%w: %s", ErrUnknownAttr, attribute)
	}

	if _, err := s.store.FindTermByName(ctx, attribute, name); err == nil {
		return Term{}, ErrTermExists
	} else if !errors.Is(err, ErrNotFound) {
		return Term{}, fmt.Errorf("find term: %w", err)
	}

	term, err := s.store.CreateTerm(ctx, attribute, name, TermSlug(name))
	if err != nil {
		if errors.Is(err, ErrTermExists) {
			return Term{}, err
		}
		return Term{}, fmt.Errorf("create term: %w", err)
	}
	slog.Info("term created", "attribute", attribute, "term_id", term.ID, "name", term.Name)
	return term, nil
}

// ListTerms returns the terms of a registered attribute.
func (s *Service) ListTerms(ctx context.Context, attribute string) ([]Term, error) {
	if _, ok := s.Registry().Lookup(attribute); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttr, attribute)
	}
	return s.store.ListTerms(ctx, attribute)
}

// ListProducts returns products matching filter. Every filter key must be a
// registered attribute.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	reg := s.Registry()
	for key := range filter.Terms {
		if _, ok := reg.Lookup(key); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAttr, key)
		}
	}
	return s.store.ListProducts(ctx, filter)
}

// Settings returns the persisted settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return s.store.Settings(ctx)
}

// SaveSettings persists settings.
func (s *Service) SaveSettings(ctx context.Context, settings Settings) error {
	return s.store.SaveSettings(ctx, settings)
}

// Report returns a recent report by id.
func (s *Service) Report(id string) (*ImportReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	return r, ok
}

// Reports returns recent reports, newest first.
func (s *Service) Reports() []*ImportReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ImportReport, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.reports[s.order[i]])
	}
	return out
}

func (s *Service) keep(r *ImportReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	s.order = append(s.order, r.ID)
	for len(s.order) > s.cfg.KeepReports {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
}
