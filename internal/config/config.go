// Package config reads and writes the tally.yaml workspace configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file at the workspace root.
const FileName = "tally.yaml"

// DefaultAPIKeyEnv names the environment variable holding the AI API key.
const DefaultAPIKeyEnv = "TALLY_AI_API_KEY"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	User    int64         `yaml:"user"`
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
	AI      AIConfig      `yaml:"ai"`
	Log     LogConfig     `yaml:"log"`
	Git     GitConfig     `yaml:"git"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// ImportConfig holds defaults for tally import.
type ImportConfig struct {
	DefaultFormat  string `yaml:"default_format"`
	DefaultAccount int64  `yaml:"default_account,omitempty"`
}

// AIConfig configures the AI fallback classifier. The key itself never
// lives in the file; APIKeyEnv names the variable that holds it.
type AIConfig struct {
	Provider       string `yaml:"provider"` // "chat" or "gemini"
	Endpoint       string `yaml:"endpoint,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	BatchSize      int    `yaml:"batch_size"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Schedule       string `yaml:"schedule"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a tally.yaml file from disk. Missing fields take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDir loads <dir>/tally.yaml and the optional <dir>/.env.
func LoadDir(dir string) (*Config, error) {
	if err := LoadEnv(dir); err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, FileName))
}

// LoadEnv loads <dir>/.env into the process environment if it exists.
// Variables already set are not overridden.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new workspace.
func Default() *Config {
	return &Config{
		User: 1,
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "tally.db",
		},
		Import: ImportConfig{
			DefaultFormat: "auto",
		},
		AI: AIConfig{
			Provider:       "chat",
			TimeoutSeconds: 30,
			BatchSize:      20,
			APIKeyEnv:      DefaultAPIKeyEnv,
			Schedule:       "@daily",
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Git: GitConfig{
			AuthorName:  "Tally",
			AuthorEmail: "tally@localhost",
		},
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres, got %q", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is empty")
	}
	switch c.AI.Provider {
	case "chat", "gemini":
	default:
		return fmt.Errorf("ai.provider must be chat or gemini, got %q", c.AI.Provider)
	}
	if c.AI.BatchSize <= 0 {
		return fmt.Errorf("ai.batch_size must be positive")
	}
	return nil
}

// DSN returns the storage DSN. A relative SQLite path is taken relative to root.
func (c *Config) DSN(root string) string {
	dsn := c.Storage.DSN
	if c.Storage.Driver == "sqlite" && dsn != ":memory:" && !filepath.IsAbs(dsn) {
		return filepath.Join(root, dsn)
	}
	return dsn
}

// APIKey returns the key from the environment, or "" when unset.
func (a AIConfig) APIKey() string {
	env := a.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	return os.Getenv(env)
}

// Timeout returns the per-request timeout.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}
