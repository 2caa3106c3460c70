package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigError reports a missing or invalid configuration value. Nothing is
// fetched when loading fails with it.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadOptions controls where LoadConfig looks for its inputs. An empty
// ConfigPath falls back to DefaultConfigPath, which may be absent.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string

	// Command-line overrides, applied after the environment.
	OutputPath string
	IndexPath  string
	LogLevel   string
	DryRun     bool
}

// LoadConfig loads the optional .env file into the process environment, then
// layers defaults, the YAML file, the schema file, the environment and the
// command-line overrides, in that order.
func LoadConfig(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, &ConfigError{Err: err}
	}

	cfg := Default()

	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	if err := decodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Err: err}
		}
	}

	if cfg.SchemaFile != "" {
		schema, err := LoadSchema(cfg.SchemaFile)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		cfg.Schema = *schema
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyOverrides(opts)

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("config validation error: %w", err)}
	}

	return cfg, nil
}

func decodeFile(filePath string, cfg *Config) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// loadEnvFile reads KEY=VALUE pairs without overriding variables that are
// already set. A missing default .env is not an error.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file not found: %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(c.Source.URLEnv); ok {
		c.Source.URL = strings.TrimSpace(v)
	}
	if v, ok := lookup("ARTICLE_SYNC_OUTPUT"); ok && v != "" {
		c.Publish.OutputPath = v
	}
	if v, ok := lookup("ARTICLE_SYNC_STORAGE_DSN"); ok && v != "" {
		c.Storage.DSN = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Observability.LogLevel = strings.ToLower(v)
	}
}

func (c *Config) applyOverrides(opts LoadOptions) {
	if opts.OutputPath != "" {
		c.Publish.OutputPath = opts.OutputPath
	}
	if opts.IndexPath != "" {
		c.Publish.IndexPath = opts.IndexPath
	}
	if opts.LogLevel != "" {
		c.Observability.LogLevel = strings.ToLower(opts.LogLevel)
	}
	if opts.DryRun {
		c.Publish.DryRun = true
	}
}
