package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "PRODUCT_SCANNER_CONFIG"
	databaseURLEnv   = "DATABASE_URL"
	postgresURLEnv   = "POSTGRES_URL"
	storageDriverEnv = "STORAGE_DRIVER"
	dataDirEnv       = "DATA_DIR"
	listenAddrEnv    = "LISTEN_ADDR"
	logLevelEnv      = "LOG_LEVEL"
	environmentEnv   = "APP_ENV"

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	defaultTimeout   = 20 * time.Second
)

// Storage drivers understood by the session store factory.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Storage    StorageConfig    `yaml:"storage"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Export     ExportConfig     `yaml:"export"`
}

// LoggingConfig selects slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the HTTP API listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Environment    string   `yaml:"environment"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	RateLimit      float64  `yaml:"rateLimit"`
	RateBurst      int      `yaml:"rateBurst"`
}

// FetcherConfig defines how pages are requested.
type FetcherConfig struct {
	UserAgent    string        `yaml:"userAgent"`
	Accept       string        `yaml:"accept"`
	Timeout      string        `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	timeout      time.Duration `yaml:"-"`
}

// TimeoutDuration returns the parsed per-request timeout.
func (f FetcherConfig) TimeoutDuration() time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return defaultTimeout
}

// ExtractionConfig bounds the detail-page enrichment stage.
type ExtractionConfig struct {
	EnrichmentPrefix      int `yaml:"enrichmentPrefix"`
	EnrichmentConcurrency int `yaml:"enrichmentConcurrency"`
}

// StorageConfig selects the session store.
type StorageConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"dataDir"`
}

// RefreshConfig schedules periodic re-extraction of stored sessions.
type RefreshConfig struct {
	Interval string        `yaml:"interval"`
	interval time.Duration `yaml:"-"`
}

// Every returns the refresh period; zero disables the job.
func (r RefreshConfig) Every() time.Duration {
	return r.interval
}

// ExportConfig holds default column headers keyed by record field.
type ExportConfig struct {
	Columns map[string]string `yaml:"columns"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindDurations()
	cfg.normalize()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(environmentEnv); v != "" {
		c.Server.Environment = v
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.DataDir = v
	}

	// A database URL alone switches the default file store to Postgres.
	dsn := os.Getenv(databaseURLEnv)
	if dsn == "" {
		dsn = os.Getenv(postgresURLEnv)
	}
	if dsn != "" {
		c.Storage.DSN = dsn
		if c.Storage.Driver == DriverFile {
			c.Storage.Driver = DriverPostgres
		}
	}

	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = v
	}
}

func (c *Config) bindDurations() {
	if c.Fetcher.Timeout != "" {
		d, err := time.ParseDuration(c.Fetcher.Timeout)
		if err != nil || d <= 0 {
			log.Printf("config: invalid fetcher timeout %q, reverting to %s", c.Fetcher.Timeout, defaultTimeout)
			d = defaultTimeout
		}
		c.Fetcher.timeout = d
	}

	c.Refresh.interval = 0
	if c.Refresh.Interval != "" && c.Refresh.Interval != "0" {
		d, err := time.ParseDuration(c.Refresh.Interval)
		if err != nil || d < 0 {
			log.Printf("config: invalid refresh interval %q, refresh disabled", c.Refresh.Interval)
			return
		}
		c.Refresh.interval = d
	}
}

func (c *Config) normalize() {
	defaults := defaultConfig()

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverFile, DriverPostgres, DriverSQLite, DriverMySQL:
	default:
		log.Printf("config: unknown storage driver %q, reverting to %s", c.Storage.Driver, DriverFile)
		c.Storage.Driver = DriverFile
	}

	if c.Extraction.EnrichmentPrefix <= 0 {
		c.Extraction.EnrichmentPrefix = defaults.Extraction.EnrichmentPrefix
	}
	if c.Extraction.EnrichmentConcurrency <= 0 {
		c.Extraction.EnrichmentConcurrency = defaults.Extraction.EnrichmentConcurrency
	}
	if c.Fetcher.MaxBodyBytes <= 0 {
		c.Fetcher.MaxBodyBytes = defaults.Fetcher.MaxBodyBytes
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = defaults.Server.RateBurst
	}

	for field, name := range defaults.Export.Columns {
		if _, ok := c.Export.Columns[field]; !ok {
			c.Export.Columns[field] = name
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.Environment != "" {
		base.Server.Environment = override.Server.Environment
	}
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = override.Server.AllowedOrigins
	}
	if override.Server.RateLimit != 0 {
		base.Server.RateLimit = override.Server.RateLimit
	}
	if override.Server.RateBurst != 0 {
		base.Server.RateBurst = override.Server.RateBurst
	}

	if override.Fetcher.UserAgent != "" {
		base.Fetcher.UserAgent = override.Fetcher.UserAgent
	}
	if override.Fetcher.Accept != "" {
		base.Fetcher.Accept = override.Fetcher.Accept
	}
	if override.Fetcher.Timeout != "" {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.MaxBodyBytes != 0 {
		base.Fetcher.MaxBodyBytes = override.Fetcher.MaxBodyBytes
	}

	if override.Extraction.EnrichmentPrefix != 0 {
		base.Extraction.EnrichmentPrefix = override.Extraction.EnrichmentPrefix
	}
	if override.Extraction.EnrichmentConcurrency != 0 {
		base.Extraction.EnrichmentConcurrency = override.Extraction.EnrichmentConcurrency
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}

	if override.Refresh.Interval != "" {
		base.Refresh.Interval = override.Refresh.Interval
	}

	for field, name := range override.Export.Columns {
		base.Export.Columns[field] = name
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:           ":8080",
			Environment:    "development",
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimit:      5,
			RateBurst:      10,
		},
		Fetcher: FetcherConfig{
			UserAgent:    defaultUserAgent,
			Accept:       defaultAccept,
			Timeout:      defaultTimeout.String(),
			MaxBodyBytes: 10 << 20,
			timeout:      defaultTimeout,
		},
		Extraction: ExtractionConfig{
			EnrichmentPrefix:      50,
			EnrichmentConcurrency: 5,
		},
		Storage: StorageConfig{Driver: DriverFile, DataDir: "data"},
		Export: ExportConfig{
			Columns: map[string]string{
				"title":            "#product_name",
				"price":            "#product_price",
				"stock":            "#product_stock",
				"rating":           "#product_rating",
				"reviewCount":      "#product_reviews",
				"shortDescription": "#product_short_description",
				"longDescription":  "#product_long_description",
				"sku":              "#product_sku",
				"brand":            "#product_brand",
				"image":            "#product_image",
				"url":              "#product_url",
			},
		},
	}
}
