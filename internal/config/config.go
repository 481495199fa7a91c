package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	SourcesFile    string `mapstructure:"sources_file"`
	SignaturesFile string `mapstructure:"signatures_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	EnabledSources []string `mapstructure:"enabled_sources"`

	// Query shape applied to every run.
	QueryCategory string   `mapstructure:"query_category"`
	QueryTerms    []string `mapstructure:"query_terms"`

	// Acquisition behavior.
	AllowFallback    bool `mapstructure:"allow_fallback"`
	StrictLive       bool `mapstructure:"strict_live"`
	ExhaustivePasses bool `mapstructure:"exhaustive_passes"`
	ItemLimit        int  `mapstructure:"item_limit"`
	SitemapPageLimit int  `mapstructure:"sitemap_page_limit"`

	// Fetch tuning.
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryBackoffMs        int64         `mapstructure:"retry_backoff_ms"`
	RetryBackoff          time.Duration `mapstructure:"-"`
	HostRateLimitRPS      float64       `mapstructure:"host_rate_limit_rps"`

	// Debug snapshot capture.
	DebugSources bool   `mapstructure:"debug_sources"`
	DebugDir     string `mapstructure:"debug_dir"`

	CrawlIntervalSeconds int64         `mapstructure:"crawl_interval"`
	CrawlInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	FXRefreshSeconds int64  `mapstructure:"fx_refresh_seconds"`
	FXEndpoint       string `mapstructure:"fx_endpoint"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "cardscout-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sources_file", "")
	v.SetDefault("signatures_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("enabled_sources", []string{})
	v.SetDefault("query_category", "trading cards")
	v.SetDefault("query_terms", []string{})
	v.SetDefault("allow_fallback", false)
	v.SetDefault("strict_live", false)
	v.SetDefault("exhaustive_passes", false)
	v.SetDefault("item_limit", 36)
	v.SetDefault("sitemap_page_limit", 80)
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_backoff_ms", 300)
	v.SetDefault("host_rate_limit_rps", 2.0)
	v.SetDefault("debug_sources", false)
	v.SetDefault("debug_dir", "debug/sources")
	v.SetDefault("crawl_interval", 900) // seconds
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("fx_refresh_seconds", 21600)
	v.SetDefault("fx_endpoint", "https://api.frankfurter.dev/v1/latest")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	cfg.RetryBackoff = time.Duration(cfg.RetryBackoffMs) * time.Millisecond
	cfg.CrawlInterval = time.Duration(cfg.CrawlIntervalSeconds) * time.Second
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive)")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries (must be zero or positive)")
	}
	if c.RetryBackoffMs <= 0 {
		return fmt.Errorf("invalid retry_backoff_ms (must be positive)")
	}
	if c.ItemLimit <= 0 {
		return fmt.Errorf("invalid item_limit (must be positive)")
	}
	if c.SitemapPageLimit <= 0 {
		return fmt.Errorf("invalid sitemap_page_limit (must be positive)")
	}
	if c.CrawlIntervalSeconds <= 0 {
		return fmt.Errorf("invalid crawl_interval (must be positive seconds)")
	}
	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	if c.DebugSources && strings.TrimSpace(c.DebugDir) == "" {
		return fmt.Errorf("debug_sources requires debug_dir")
	}
	return nil
}

// SourceEnabled reports whether the given source id participates in runs.
// An empty enabled_sources list means all registered sources run.
func (c *Config) SourceEnabled(id string) bool {
	if len(c.EnabledSources) == 0 {
		return true
	}
	for _, s := range c.EnabledSources {
		if strings.EqualFold(strings.TrimSpace(s), id) {
			return true
		}
	}
	return false
}
