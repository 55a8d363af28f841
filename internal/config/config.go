// Package config provides centralized configuration management for catalogsync.
// It loads settings from environment variables with sensible defaults and
// validates everything on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
// All settings can be configured via environment variables; koanf keys
// follow the section and field tags.
type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Store    StoreConfig     `koanf:"store"`
	Database DatabaseConfig  `koanf:"database"`
	Catalog  CatalogConfig   `koanf:"catalog"`
	Import   ImportConfig    `koanf:"import"`
	Rate     RateLimitConfig `koanf:"rate"`
	Security SecurityConfig  `koanf:"security"`
	Logging  LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `koanf:"host"`

	// Port is the port to listen on (default: 8080)
	Port int `koanf:"port"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for running imports (default: 30s)
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout is the middleware timeout for non-import requests (default: 60s)
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// StoreConfig selects the catalog store.
type StoreConfig struct {
	// Driver is memory, sqlite or postgres (default: sqlite)
	Driver string `koanf:"driver"`

	// SQLitePath is the database file for the sqlite driver (default: catalogsync.db)
	SQLitePath string `koanf:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL pool settings. Only used by the postgres driver.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `koanf:"url"`

	MaxConns        int           `koanf:"max_conns"`
	MinConns        int           `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
}

// CatalogConfig names the catalog and points at the optional catalog file.
type CatalogConfig struct {
	// Name is used in export file names and the dashboard title (default: Catalog)
	Name string `koanf:"name"`

	// File is a catalog.yaml with the name and custom attribute seeds (optional)
	File string `koanf:"file"`
}

// ImportConfig holds spreadsheet import settings.
type ImportConfig struct {
	// MaxFileSize is the upload limit in bytes (default: 10 MiB)
	MaxFileSize int64 `koanf:"max_file_size"`

	// ChunkThreshold is the file size above which rows are read in windows (default: 5 MiB)
	ChunkThreshold int64 `koanf:"chunk_threshold"`

	// ChunkSize is the number of rows per window (default: 100)
	ChunkSize int `koanf:"chunk_size"`

	AllowedExtensions []string `koanf:"allowed_extensions"`

	// MaxConcurrent is the number of import runs allowed at once (default: 1)
	MaxConcurrent int `koanf:"max_concurrent"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `koanf:"max_wait_time"`

	// Timeout bounds one import run (default: 10m)
	Timeout time.Duration `koanf:"timeout"`

	// KeepReports is how many finished reports stay retrievable (default: 20)
	KeepReports int `koanf:"keep_reports"`

	ReportTTL           time.Duration `koanf:"report_ttl"`
	SpoolMaxAge         time.Duration `koanf:"spool_max_age"`
	MaintenanceInterval time.Duration `koanf:"maintenance_interval"`

	// TempDir holds spooled uploads (default: os.TempDir())
	TempDir string `koanf:"temp_dir"`
}

// RateLimitConfig holds rate limiting settings per client IP.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled"`

	// RequestsPerMinute is the default limit (default: 100)
	RequestsPerMinute int `koanf:"requests_per_minute"`

	// ImportLimit is requests per minute for import and preview (default: 10)
	ImportLimit int `koanf:"import_limit"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey turns off open mode: mutating routes need a key from APIKeys.
	RequireAPIKey bool `koanf:"require_api_key"`

	// APIKeys is a comma-separated list of "name:key" pairs. A bare key is named "api".
	APIKeys []string `koanf:"api_keys"`

	// SessionSecret signs the session cookie that carries the nonce token.
	SessionSecret string `koanf:"session_secret"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `koanf:"trusted_proxies"`

	EnableCSP bool `koanf:"enable_csp"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `koanf:"level"`

	// Format is the log format: text or json (default: text)
	Format string `koanf:"format"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// NamedKeys splits APIKeys into key -> name.
func (c *SecurityConfig) NamedKeys() map[string]string {
	out := make(map[string]string, len(c.APIKeys))
	for _, entry := range c.APIKeys {
		name, key, ok := strings.Cut(entry, ":")
		if !ok {
			name, key = "api", entry
		}
		name, key = strings.TrimSpace(name), strings.TrimSpace(key)
		if key != "" {
			out[key] = name
		}
	}
	return out
}
