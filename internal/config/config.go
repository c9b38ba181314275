// Package config loads application configuration from an optional YAML file
// plus environment variables. Environment variables win over the file so a
// container deployment can override a checked-in config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tinoosan/paytrace/internal/slug"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Parser     ParserConfig     `yaml:"parser"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storage    StorageConfig    `yaml:"storage"`
	Workers    int              `yaml:"workers"`
}

// Duration decodes YAML duration strings like "30s". yaml.v3 has no native
// support for time.Duration.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// ParserConfig tunes the auxiliary tag parser and journal ingestion.
type ParserConfig struct {
	// MaxValueLen truncates tag values longer than this many runes. Zero
	// keeps values untouched.
	MaxValueLen int `yaml:"max_value_len"`
	// VoucherPrefix selects which vouchers count as bank payments, e.g. 银付.
	VoucherPrefix string `yaml:"voucher_prefix"`
	// Aliases adds site-specific tag aliases on top of the built-in table.
	// Keys are the raw Chinese tag types, values the canonical slug.
	Aliases map[string]string `yaml:"aliases"`
}

// ClassifierConfig selects the payment classifier. An empty APIKey disables
// LLM classification and every record gets the default labels.
type ClassifierConfig struct {
	Provider string   `yaml:"provider"`
	APIKey   string   `yaml:"api_key"`
	BaseURL  string   `yaml:"base_url"`
	Model    string   `yaml:"model"`
	Timeout  Duration `yaml:"timeout"`
}

// StorageConfig selects the persistence backend. PostgresDSN wins over
// SQLitePath; with neither set the in-memory store is used.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Load reads the optional YAML file at path (or $CONFIG_FILE when path is
// empty), applies environment overrides and defaults, and validates the
// result. A missing file is not an error; only an unreadable or malformed one
// is. A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env + defaults
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "HTTP_ADDR")
	setString(&cfg.Parser.VoucherPrefix, "VOUCHER_PREFIX")
	setInt(&cfg.Parser.MaxValueLen, "TAG_MAX_VALUE_LEN")
	setInt(&cfg.Workers, "WORKERS")

	setString(&cfg.Classifier.Provider, "LLM_PROVIDER")
	setString(&cfg.Classifier.APIKey, "LLM_API_KEY")
	setString(&cfg.Classifier.BaseURL, "LLM_BASE_URL")
	setString(&cfg.Classifier.Model, "LLM_MODEL")
	setDuration(&cfg.Classifier.Timeout, "LLM_TIMEOUT")

	setString(&cfg.Storage.PostgresDSN, "DATABASE_URL")
	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(5 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Parser.VoucherPrefix == "" {
		cfg.Parser.VoucherPrefix = "银付"
	}
	if cfg.Classifier.Provider == "" {
		cfg.Classifier.Provider = "deepseek"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
}

// Validate rejects values the rest of the application cannot work with.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Parser.MaxValueLen < 0 {
		return fmt.Errorf("parser max_value_len must not be negative, got %d", c.Parser.MaxValueLen)
	}
	for raw, canonical := range c.Parser.Aliases {
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("parser alias with empty raw type")
		}
		if !slug.IsSlug(canonical) {
			return fmt.Errorf("parser alias %q maps to invalid slug %q", raw, canonical)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setDuration(dst *Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = Duration(d)
	}
}
