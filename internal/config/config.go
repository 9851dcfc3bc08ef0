// Package config loads service settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Cache   CacheConfig   `yaml:"cache"`
	Engine  EngineConfig  `yaml:"engine"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	SFTP    SFTPConfig    `yaml:"sftp"`
}

type CatalogConfig struct {
	// Backend is "postgres" or "sqlite".
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	// SourceURL is the page the import command reads when given no argument.
	SourceURL string `yaml:"source_url"`
}

type CacheConfig struct {
	// RedisAddr empty disables caching.
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type EngineConfig struct {
	// MaxWorkers bounds concurrent detail lookups per cluster.
	MaxWorkers int `yaml:"max_workers"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SFTPConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Pass                  string `yaml:"pass"`
	Dir                   string `yaml:"dir"`
	KnownHostsFile        string `yaml:"known_hosts_file"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key"`
}

func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Backend:    BackendSQLite,
			SQLitePath: "catalog.db",
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Engine: EngineConfig{
			MaxWorkers: 8,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		SFTP: SFTPConfig{
			Port: 22,
			Dir:  "/inbound",
		},
	}
}

// Load builds the effective configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Catalog.Backend = getenv("CATALOG_BACKEND", c.Catalog.Backend)
	c.Catalog.DatabaseURL = getenv("DATABASE_URL", c.Catalog.DatabaseURL)
	c.Catalog.SQLitePath = getenv("SQLITE_PATH", c.Catalog.SQLitePath)
	c.Catalog.SourceURL = getenv("CATALOG_SOURCE_URL", c.Catalog.SourceURL)

	c.Cache.RedisAddr = getenv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.TTL = getenvDuration("CACHE_TTL", c.Cache.TTL)

	c.Engine.MaxWorkers = getenvInt("MAX_WORKERS", c.Engine.MaxWorkers)
	c.HTTP.Addr = getenv("HTTP_ADDR", c.HTTP.Addr)
	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)

	c.SFTP.Host = getenv("SFTP_HOST", c.SFTP.Host)
	c.SFTP.Port = getenvInt("SFTP_PORT", c.SFTP.Port)
	c.SFTP.User = getenv("SFTP_USER", c.SFTP.User)
	c.SFTP.Pass = getenv("SFTP_PASS", c.SFTP.Pass)
	c.SFTP.Dir = getenv("SFTP_DIR", c.SFTP.Dir)
	c.SFTP.KnownHostsFile = getenv("SFTP_KNOWN_HOSTS", c.SFTP.KnownHostsFile)
	c.SFTP.InsecureIgnoreHostKey = getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", c.SFTP.InsecureIgnoreHostKey)
}

func (c *Config) Validate() error {
	switch c.Catalog.Backend {
	case BackendPostgres:
		if c.Catalog.DatabaseURL == "" {
			return fmt.Errorf("catalog.database_url is required for the postgres backend")
		}
	case BackendSQLite:
		if c.Catalog.SQLitePath == "" {
			return fmt.Errorf("catalog.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("catalog.backend must be %q or %q, got %q", BackendPostgres, BackendSQLite, c.Catalog.Backend)
	}
	if c.Engine.MaxWorkers < 1 {
		return fmt.Errorf("engine.max_workers must be at least 1")
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when caching is enabled")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// SlogLevel maps Log.Level onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
