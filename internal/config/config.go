// Package config handles cypher2sql configuration via a YAML file and
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--schema, --dialect, --verify, ...)
//  2. Environment variables (CYPHER2SQL_*)
//  3. Config file (--config, or the first file FindConfigFile finds)
//  4. Built-in defaults
//
// Environment variables:
//
// Translation:
//   - CYPHER2SQL_SCHEMA="./schema.yaml"
//   - CYPHER2SQL_DIALECT="postgres"
//   - CYPHER2SQL_VERIFY=true
//
// Storage:
//   - CYPHER2SQL_DATA_DIR="~/.cypher2sql"
//   - CYPHER2SQL_CACHE_ENABLED=true
//   - CYPHER2SQL_CACHE_DIR="/var/cache/cypher2sql"
//   - CYPHER2SQL_HISTORY_ENABLED=true
//   - CYPHER2SQL_HISTORY_PATH="./history.db"
//
// Logging:
//   - CYPHER2SQL_LOG_LEVEL="debug"
//   - CYPHER2SQL_LOG_FORMAT="json"
//   - CYPHER2SQL_LOG_OUTPUT="stderr"
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cypher2sql/internal/sqlast"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "CYPHER2SQL_"

// Config is the complete runtime configuration.
type Config struct {
	// Schema is the path of the schema document (YAML, .cue file or CUE directory).
	Schema string

	Translate TranslateConfig
	Cache     CacheConfig
	History   HistoryConfig
	Logging   LoggingConfig

	// DataDir is the default parent of the cache directory and history database.
	DataDir string
}

// TranslateConfig holds pipeline settings.
type TranslateConfig struct {
	// Dialect (basic, postgres, mysql, sqlserver)
	Dialect string
	// Verify prepares every statement against shadow tables in SQLite
	Verify bool
}

// CacheConfig holds translation cache settings.
type CacheConfig struct {
	Enabled bool
	// Dir of the badger database; empty means <DataDir>/cache
	Dir string
}

// HistoryConfig holds translation history settings.
type HistoryConfig struct {
	Enabled bool
	// Path of the SQLite database; empty means <DataDir>/history.db
	Path string
	// Limit is the default number of entries the history command lists
	Limit int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (debug, info, warn, error)
	Level string
	// Format (json, text)
	Format string
	// Output (stdout, stderr, or file path)
	Output string
}

// yamlConfig is the config file layout. Pointers distinguish an explicit
// false or zero from an absent key.
type yamlConfig struct {
	Schema  string `yaml:"schema"`
	DataDir string `yaml:"data_dir"`

	Translate struct {
		Dialect string `yaml:"dialect"`
		Verify  *bool  `yaml:"verify"`
	} `yaml:"translate"`

	Cache struct {
		Enabled *bool  `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"cache"`

	History struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
		Limit   int    `yaml:"limit"`
	} `yaml:"history"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// LoadDefaults returns the built-in configuration.
func LoadDefaults() *Config {
	dataDir := ".cypher2sql"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".cypher2sql")
	}
	return &Config{
		DataDir: dataDir,
		Translate: TranslateConfig{
			Dialect: sqlast.Basic.Name(),
		},
		History: HistoryConfig{
			Limit: 20,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadFromEnv returns the defaults overlaid with CYPHER2SQL_* variables.
func LoadFromEnv() *Config {
	cfg := LoadDefaults()
	ApplyEnvVars(cfg)
	return cfg
}

// Load returns defaults, overlaid with the file at path (if path is
// non-empty), overlaid with CYPHER2SQL_* variables. A missing file at an
// explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := LoadDefaults()
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	ApplyEnvVars(cfg)
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if y.Schema != "" {
		cfg.Schema = resolve(path, y.Schema)
	}
	if y.DataDir != "" {
		cfg.DataDir = resolve(path, y.DataDir)
	}
	if y.Translate.Dialect != "" {
		cfg.Translate.Dialect = y.Translate.Dialect
	}
	if y.Translate.Verify != nil {
		cfg.Translate.Verify = *y.Translate.Verify
	}
	if y.Cache.Enabled != nil {
		cfg.Cache.Enabled = *y.Cache.Enabled
	}
	if y.Cache.Dir != "" {
		cfg.Cache.Dir = resolve(path, y.Cache.Dir)
	}
	if y.History.Enabled != nil {
		cfg.History.Enabled = *y.History.Enabled
	}
	if y.History.Path != "" {
		cfg.History.Path = resolve(path, y.History.Path)
	}
	if y.History.Limit != 0 {
		cfg.History.Limit = y.History.Limit
	}
	if y.Logging.Level != "" {
		cfg.Logging.Level = y.Logging.Level
	}
	if y.Logging.Format != "" {
		cfg.Logging.Format = y.Logging.Format
	}
	if y.Logging.Output != "" {
		cfg.Logging.Output = y.Logging.Output
	}
	return nil
}

// resolve makes p relative to the directory of the config file.
func resolve(configPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// ApplyEnvVars overlays CYPHER2SQL_* variables onto cfg. Setting
// CYPHER2SQL_CACHE_DIR or CYPHER2SQL_HISTORY_PATH also enables that store.
func ApplyEnvVars(cfg *Config) {
	cfg.Schema = getEnv("SCHEMA", cfg.Schema)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)

	cfg.Translate.Dialect = getEnv("DIALECT", cfg.Translate.Dialect)
	cfg.Translate.Verify = getEnvBool("VERIFY", cfg.Translate.Verify)

	if dir := getEnv("CACHE_DIR", ""); dir != "" {
		cfg.Cache.Dir = dir
		cfg.Cache.Enabled = true
	}
	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", cfg.Cache.Enabled)

	if path := getEnv("HISTORY_PATH", ""); path != "" {
		cfg.History.Path = path
		cfg.History.Enabled = true
	}
	cfg.History.Enabled = getEnvBool("HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.Limit = getEnvInt("HISTORY_LIMIT", cfg.History.Limit)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("LOG_OUTPUT", cfg.Logging.Output)
}

// CacheDir returns the cache directory, defaulting under DataDir.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.DataDir, "cache")
}

// HistoryPath returns the history database path, defaulting under DataDir.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.DataDir, "history.db")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := sqlast.DialectByName(c.Translate.Dialect); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q (valid: json, text)", c.Logging.Format)
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("invalid history limit: %d", c.History.Limit)
	}
	if c.Logging.Output == "" {
		return fmt.Errorf("log output is required")
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Schema: %s, Dialect: %s, Verify: %v, Cache: %v, History: %v, Log: %s/%s}",
		c.Schema, c.Translate.Dialect, c.Translate.Verify,
		c.Cache.Enabled, c.History.Enabled,
		c.Logging.Level, c.Logging.Format,
	)
}

// FindConfigFile returns the first existing config file, or "" if none.
// Search order:
//  1. ./cypher2sql.yaml
//  2. ~/.cypher2sql/config.yaml
//  3. ~/.config/cypher2sql/config.yaml
func FindConfigFile() string {
	candidates := []string{"cypher2sql.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".cypher2sql", "config.yaml"),
			filepath.Join(home, ".config", "cypher2sql", "config.yaml"),
		)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", s)
	}
	return level, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
