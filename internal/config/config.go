package config

import (
	"fmt"
	"time"
)

const (
	DefaultURLEnv       = "GOOGLE_SHEETS_URL"
	DefaultOutputPath   = "articles.json"
	DefaultConfigPath   = "configs/config.yaml"
	DefaultUserAgent    = "article-sync/1.0 (+https://github.com/article-sync)"
	DefaultTotalTimeout = 15000
)

type Config struct {
	Source        SourceConfig        `yaml:"source"`
	HTTP          HttpConfig          `yaml:"http"`
	SchemaFile    string              `yaml:"schema_file"`
	Schema        SchemaConfig        `yaml:"schema"`
	Publish       PublishConfig       `yaml:"publish"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SourceConfig names the environment variable holding the sheet URL.
// URL itself is never read from the YAML file.
type SourceConfig struct {
	URLEnv string `yaml:"url_env"`
	URL    string `yaml:"-"`
}

type HttpConfig struct {
	UserAgent        string `yaml:"user_agent"`
	TotalTimeoutMS   int    `yaml:"total_timeout_ms"`
	MaxResponseBytes int64  `yaml:"max_response_bytes"`
}

// SchemaConfig holds the canonical column names of the sheet.
type SchemaConfig struct {
	TitleField           string `yaml:"title_field"`
	StatusField          string `yaml:"status_field"`
	FirstParagraphField  string `yaml:"first_paragraph_field"`
	SecondParagraphField string `yaml:"second_paragraph_field"`
	PublishedValue       string `yaml:"published_value"`
}

type PublishConfig struct {
	OutputPath    string `yaml:"output_path"`
	IndexPath     string `yaml:"index_path"`
	DefaultAuthor string `yaml:"default_author"`
	SiteTitle     string `yaml:"site_title"`
	DryRun        bool   `yaml:"dry_run"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ObservabilityConfig struct {
	LogPath       string `yaml:"log_path"`
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
	MetricsPath   string `yaml:"metrics_path"`
}

// Default returns a configuration usable without any YAML file.
func Default() *Config {
	return &Config{
		Source: SourceConfig{URLEnv: DefaultURLEnv},
		HTTP: HttpConfig{
			UserAgent:        DefaultUserAgent,
			TotalTimeoutMS:   DefaultTotalTimeout,
			MaxResponseBytes: 32 << 20,
		},
		Schema: DefaultSchema(),
		Publish: PublishConfig{
			OutputPath:    DefaultOutputPath,
			DefaultAuthor: "Prime Cuts Team",
			SiteTitle:     "Prime Cuts Articles CDN",
		},
		Storage: StorageConfig{CommandTimeoutMS: 5000},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			LogMaxSizeMB:  10,
			LogMaxBackups: 5,
			LogMaxAgeDays: 30,
		},
	}
}

func DefaultSchema() SchemaConfig {
	return SchemaConfig{
		TitleField:           "Title",
		StatusField:          "Status",
		FirstParagraphField:  "First Paragraph",
		SecondParagraphField: "Second Paragraph",
		PublishedValue:       "published",
	}
}

// Validation
func (c *Config) Validate() error {
	if c.Source.URLEnv == "" {
		return fmt.Errorf("source.url_env is required")
	}
	if c.Source.URL == "" {
		return fmt.Errorf("environment variable %s is not set", c.Source.URLEnv)
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxResponseBytes < 0 {
		return fmt.Errorf("http.max_response_bytes must be >= 0")
	}
	if err := validateSchema(&c.Schema); err != nil {
		return err
	}
	if c.Publish.OutputPath == "" {
		return fmt.Errorf("publish.output_path is required")
	}
	if c.Publish.IndexPath != "" && c.Publish.IndexPath == c.Publish.OutputPath {
		return fmt.Errorf("publish.index_path must differ from publish.output_path")
	}
	switch c.Storage.Driver {
	case "":
	case "mssql", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver is set")
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("storage.driver must be empty, 'mssql' or 'postgres'")
	}
	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("observability.log_level must be one of debug, info, warn, error")
	}
	return nil
}

// Getters
func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}
