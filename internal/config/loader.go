package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// defaults are loaded first; env values are parsed to the type found here.
var defaults = map[string]any{
	"server.host":             "0.0.0.0",
	"server.port":             8080,
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    time.Duration(0),
	"server.idle_timeout":     60 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,
	"server.request_timeout":  60 * time.Second,

	"store.driver":      DriverSQLite,
	"store.sqlite_path": "catalogsync.db",

	"database.url":                "",
	"database.max_conns":          20,
	"database.min_conns":          4,
	"database.max_conn_lifetime":  time.Hour,
	"database.max_conn_idle_time": 30 * time.Minute,

	"catalog.name": "Catalog",
	"catalog.file": "",

	"import.max_file_size":        int64(10 << 20),
	"import.chunk_threshold":      int64(5 << 20),
	"import.chunk_size":           100,
	"import.allowed_extensions":   []string{"xls", "xlsx", "csv"},
	"import.max_concurrent":       1,
	"import.max_wait_time":        30 * time.Second,
	"import.timeout":              10 * time.Minute,
	"import.keep_reports":         20,
	"import.report_ttl":           24 * time.Hour,
	"import.spool_max_age":        time.Hour,
	"import.maintenance_interval": 15 * time.Minute,
	"import.temp_dir":             "",

	"rate.enabled":             true,
	"rate.requests_per_minute": 100,
	"rate.import_limit":        10,

	"security.require_api_key": false,
	"security.api_keys":        []string{},
	"security.session_secret":  "",
	"security.trusted_proxies": []string{},
	"security.enable_csp":      true,

	"logging.level":  "info",
	"logging.format": "text",
}

// envKeys maps environment variables to koanf keys.
var envKeys = map[string]string{
	"SERVER_HOST":             "server.host",
	"SERVER_PORT":             "server.port",
	"SERVER_READ_TIMEOUT":     "server.read_timeout",
	"SERVER_WRITE_TIMEOUT":    "server.write_timeout",
	"SERVER_IDLE_TIMEOUT":     "server.idle_timeout",
	"SERVER_SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
	"SERVER_REQUEST_TIMEOUT":  "server.request_timeout",

	"STORE_DRIVER": "store.driver",
	"SQLITE_PATH":  "store.sqlite_path",

	"DATABASE_URL":          "database.url",
	"DB_URL":                "database.url",
	"DB_MAX_CONNS":          "database.max_conns",
	"DB_MIN_CONNS":          "database.min_conns",
	"DB_MAX_CONN_LIFETIME":  "database.max_conn_lifetime",
	"DB_MAX_CONN_IDLE_TIME": "database.max_conn_idle_time",

	"CATALOG_NAME": "catalog.name",
	"CATALOG_FILE": "catalog.file",

	"IMPORT_MAX_FILE_SIZE":        "import.max_file_size",
	"IMPORT_CHUNK_THRESHOLD":      "import.chunk_threshold",
	"IMPORT_CHUNK_SIZE":           "import.chunk_size",
	"IMPORT_ALLOWED_EXTENSIONS":   "import.allowed_extensions",
	"IMPORT_MAX_CONCURRENT":       "import.max_concurrent",
	"IMPORT_MAX_WAIT_TIME":        "import.max_wait_time",
	"IMPORT_TIMEOUT":              "import.timeout",
	"IMPORT_KEEP_REPORTS":         "import.keep_reports",
	"IMPORT_REPORT_TTL":           "import.report_ttl",
	"IMPORT_SPOOL_MAX_AGE":        "import.spool_max_age",
	"IMPORT_MAINTENANCE_INTERVAL": "import.maintenance_interval",
	"IMPORT_TEMP_DIR":             "import.temp_dir",

	"RATE_LIMIT_ENABLED":             "rate.enabled",
	"RATE_LIMIT_REQUESTS_PER_MINUTE": "rate.requests_per_minute",
	"RATE_LIMIT_IMPORT":              "rate.import_limit",

	"REQUIRE_API_KEY":     "security.require_api_key",
	"API_KEYS":            "security.api_keys",
	"SESSION_SECRET":      "security.session_secret",
	"TRUSTED_PROXIES":     "security.trusted_proxies",
	"SECURITY_ENABLE_CSP": "security.enable_csp",

	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
}

// Load reads configuration from environment variables over the defaults
// and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config load: defaults: %w", err)
	}

	// Blank variables do not override. DB_URL only counts when DATABASE_URL is unset.
	var errs []string
	provider := env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key, ok := envKeys[name]
		if !ok || strings.TrimSpace(value) == "" {
			return "", nil
		}
		if name == "DB_URL" && os.Getenv("DATABASE_URL") != "" {
			return "", nil
		}
		v, err := parseValue(defaults[key], strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid value for %s=%q: %v", name, value, err))
			return "", nil
		}
		return key, v
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("config load: env: %w", err)
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return nil, fmt.Errorf("config load: %s", strings.Join(errs, "; "))
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// parseValue converts an env value to the type of its default.
func parseValue(def any, value string) (any, error) {
	switch def.(type) {
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid duration: %w", err)
		}
		return d, nil
	case int:
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %w", err)
		}
		return i, nil
	case int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %w", err)
		}
		return i, nil
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %w", err)
		}
		return b, nil
	case []string:
		return splitList(value), nil
	default:
		return value, nil
	}
}

// splitList splits a comma-separated value, trimming blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var knownExtensions = []string{"xls", "xlsx", "csv"}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Store
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres driver")
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER (%q) must be one of: memory, sqlite, postgres", c.Store.Driver))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Catalog
	if strings.TrimSpace(c.Catalog.Name) == "" {
		errs = append(errs, "CATALOG_NAME must not be blank")
	}

	// Import
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.ChunkThreshold < 0 {
		errs = append(errs, "IMPORT_CHUNK_THRESHOLD must be non-negative")
	}
	if c.Import.ChunkSize <= 0 {
		errs = append(errs, "IMPORT_CHUNK_SIZE must be positive")
	}
	for _, ext := range c.Import.AllowedExtensions {
		if !slices.Contains(knownExtensions, strings.ToLower(ext)) {
			errs = append(errs, fmt.Sprintf("IMPORT_ALLOWED_EXTENSIONS: %q is not one of xls, xlsx, csv", ext))
		}
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}
	if c.Import.KeepReports <= 0 {
		errs = append(errs, "IMPORT_KEEP_REPORTS must be positive")
	}
	if c.Import.MaintenanceInterval <= 0 {
		errs = append(errs, "IMPORT_MAINTENANCE_INTERVAL must be positive")
	}

	// Rate limit
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Security
	if c.Security.RequireAPIKey && len(c.Security.NamedKeys()) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
	if c.Security.SessionSecret != "" && len(c.Security.SessionSecret) < 32 {
		errs = append(errs, "SESSION_SECRET must be at least 32 bytes")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Database URLs, API keys and the session secret are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Store: {Driver: %q, SQLitePath: %q}, ", c.Store.Driver, c.Store.SQLitePath)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Catalog: {Name: %q, File: %q}, ", c.Catalog.Name, c.Catalog.File)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, ChunkThreshold: %d, ChunkSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.ChunkThreshold, c.Import.ChunkSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: [%d MASKED], SessionSecret: [MASKED]}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
