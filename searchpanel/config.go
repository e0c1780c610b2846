package searchpanel

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/qmsearch/horosafe"
	"github.com/hazyhaar/qmsearch/host"
)

// Config holds all panel service configuration.
type Config struct {
	DBPath string       `yaml:"db_path" validate:"required"`
	Listen string       `yaml:"listen" validate:"required,hostname_port"`
	Search SearchConfig `yaml:"search"`
	// Settings are the plugin settings used when the host does not send its
	// own.
	Settings host.Settings `yaml:"settings"`
	// Constants are constants assumed defined on every request.
	Constants map[string]any `yaml:"constants"`
	// ContentDir is stripped from reported template paths.
	ContentDir string `yaml:"content_dir"`
	// SearchableTypes is the searchable post type set used when the host
	// does not send its own.
	SearchableTypes []string      `yaml:"searchable_types"`
	JanitorInterval time.Duration `yaml:"janitor_interval" validate:"gte=0"`
	RetentionDays   int           `yaml:"retention_days" validate:"gte=0"`
	// ForceFresh bypasses cached reads on every request.
	ForceFresh bool `yaml:"force_fresh"`
	// TraceSQL logs every cache database statement through slog.
	TraceSQL bool `yaml:"trace_sql"`
	// TraceSlow is the duration above which traced statements log at Warn.
	TraceSlow time.Duration `yaml:"trace_slow" validate:"gte=0"`
	// BusyTimeout and Synchronous override the SQLite pragmas of the cache
	// database (default 10s and NORMAL).
	BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`
	Synchronous string        `yaml:"synchronous" validate:"omitempty,oneof=OFF NORMAL FULL EXTRA"`
}

// SearchConfig configures the search service client and its guard.
type SearchConfig struct {
	AppID            string        `yaml:"app_id" validate:"required"`
	APIKey           string        `yaml:"api_key" validate:"required"`
	BaseURL          string        `yaml:"base_url" validate:"omitempty,url"`
	AllowPrivate     bool          `yaml:"allow_private"`
	Timeout          time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries       *int          `yaml:"max_retries" validate:"omitempty,gte=0,lte=10"` // nil means 2; 0 disables retries
	Backoff          time.Duration `yaml:"backoff" validate:"gte=0"`
	BreakerThreshold int           `yaml:"breaker_threshold" validate:"gte=0"`
	BreakerReset     time.Duration `yaml:"breaker_reset" validate:"gte=0"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "qmsearch.db"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8086"
	}
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = 10 * time.Second
	}
	if c.Search.MaxRetries == nil {
		n := 2
		c.Search.MaxRetries = &n
	}
	if c.Search.Backoff <= 0 {
		c.Search.Backoff = 200 * time.Millisecond
	}
	if c.Search.BreakerThreshold <= 0 {
		c.Search.BreakerThreshold = 5
	}
	if c.Search.BreakerReset <= 0 {
		c.Search.BreakerReset = 30 * time.Second
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = 10 * time.Minute
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 7
	}
	if c.Settings.AutocompleteEnabled == "" {
		c.Settings.AutocompleteEnabled = "no"
	}
	if c.Settings.OverrideNativeSearch == "" {
		c.Settings.OverrideNativeSearch = "native"
	}
	if len(c.SearchableTypes) == 0 {
		c.SearchableTypes = []string{"post", "page"}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate applies defaults and checks the result.
func (c *Config) Validate() error {
	c.defaults()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("searchpanel: config: %w", err)
	}
	return nil
}

// LoadConfigFile reads a YAML config file, expands ${ENV} references in the
// search credentials and validates the result.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("searchpanel: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("searchpanel: parse config: %w", err)
	}
	cfg.Search.AppID = horosafe.ExpandEnv(cfg.Search.AppID)
	cfg.Search.APIKey = horosafe.ExpandEnv(cfg.Search.APIKey)
	cfg.Search.BaseURL = horosafe.ExpandEnv(cfg.Search.BaseURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
