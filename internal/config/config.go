package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/internal/logging"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Definition loaders.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARBOR_"

// CacheConfig selects and configures the result cache.
type CacheConfig struct {
	// Backend is one of memory, file, redis or sqlite.
	Backend string `yaml:"backend"`

	// Path is the directory of the file backend or the database file of sqlite.
	Path string `yaml:"path"`

	// Address, Password and DB configure the redis backend.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// TTL is how long partial results stay resumable.
	TTL time.Duration `yaml:"ttl"`

	// EncryptionKey is a hex encoded AES-256 key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key"`

	// PIIIdentifiers are regular expressions matched against answer
	// identifiers. Matching answers are never written to the cache.
	PIIIdentifiers []string `yaml:"pii_identifiers"`
}

// Config represents arbor configuration options.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// Definitions is the directory holding assessment definitions.
	Definitions string `yaml:"definitions"`

	// Loader reads Definitions as plain YAML/JSON files (file) or as a
	// Loam repository of Markdown documents with frontmatter (loam).
	Loader string `yaml:"loader"`

	// HTTPAddr is the listen address of arbor serve.
	HTTPAddr string `yaml:"http_addr"`

	Cache CacheConfig `yaml:"cache"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Definitions: ".",
		Loader:      LoaderFile,
		HTTPAddr:    ":8080",
		Cache: CacheConfig{
			Backend: BackendFile,
			Path:    filepath.Join(".arbor", "results"),
			Address: "localhost:6379",
			TTL:     24 * time.Hour,
		},
	}
}

// LoadConfig loads configuration from path and applies ARBOR_* environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("DEFINITIONS", &c.Definitions)
	str("LOADER", &c.Loader)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_PATH", &c.Cache.Path)
	str("CACHE_ADDRESS", &c.Cache.Address)
	str("CACHE_PASSWORD", &c.Cache.Password)
	str("ENCRYPTION_KEY", &c.Cache.EncryptionKey)

	if v, ok := lookup(EnvPrefix + "CACHE_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_DB %q: %w", EnvPrefix, v, err)
		}
		c.Cache.DB = db
	}
	if v, ok := lookup(EnvPrefix + "CACHE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCACHE_TTL %q: %w", EnvPrefix, v, err)
		}
		c.Cache.TTL = ttl
	}
	return nil
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (c *CacheConfig) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q, must be text or json", c.LogFormat)
	}

	if c.Loader != LoaderFile && c.Loader != LoaderLoam {
		return fmt.Errorf("invalid loader %q, must be file or loam", c.Loader)
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path cannot be empty for the %s backend", c.Cache.Backend)
		}
	case BackendRedis:
		if c.Cache.Address == "" {
			return errors.New("cache.address cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("invalid cache.backend %q, must be one of: memory, file, redis, sqlite", c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0, got %v", c.Cache.TTL)
	}
	if _, err := c.Cache.Key(); err != nil {
		return err
	}
	return nil
}
