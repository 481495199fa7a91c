package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AppName != "cardscout-harvester" {
		t.Fatalf("app name = %q", cfg.AppName)
	}
	if cfg.ItemLimit != 36 || cfg.SitemapPageLimit != 80 {
		t.Fatalf("acquisition defaults wrong: %d/%d", cfg.ItemLimit, cfg.SitemapPageLimit)
	}
	if cfg.MaxRetries != 2 || cfg.RetryBackoff != 300*time.Millisecond {
		t.Fatalf("retry defaults wrong: %d/%s", cfg.MaxRetries, cfg.RetryBackoff)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("timeout = %s", cfg.RequestTimeout)
	}
	if cfg.CrawlInterval != 15*time.Minute {
		t.Fatalf("crawl interval = %s", cfg.CrawlInterval)
	}
	if cfg.AllowFallback || cfg.StrictLive || cfg.ExhaustivePasses {
		t.Fatalf("behavior toggles should default off")
	}
	if cfg.StorageType != "none" {
		t.Fatalf("storage type = %q", cfg.StorageType)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STRICT_LIVE", "true")
	t.Setenv("ITEM_LIMIT", "12")
	t.Setenv("QUERY_CATEGORY", "pokemon singles")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.StrictLive {
		t.Fatalf("STRICT_LIVE override not applied")
	}
	if cfg.ItemLimit != 12 {
		t.Fatalf("ITEM_LIMIT override not applied: %d", cfg.ItemLimit)
	}
	if cfg.QueryCategory != "pokemon singles" {
		t.Fatalf("QUERY_CATEGORY override not applied: %q", cfg.QueryCategory)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"negative item limit", "ITEM_LIMIT", "-1"},
		{"zero timeout", "REQUEST_TIMEOUT_SECONDS", "0"},
		{"zero backoff", "RETRY_BACKOFF_MS", "0"},
		{"zero crawl interval", "CRAWL_INTERVAL", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestDebugSourcesRequiresDir(t *testing.T) {
	t.Setenv("DEBUG_SOURCES", "true")
	t.Setenv("DEBUG_DIR", "   ")
	if _, err := Load(); err == nil {
		t.Fatalf("debug_sources without debug_dir must fail validation")
	}
}

func TestSourceEnabled(t *testing.T) {
	cfg := &Config{}
	if !cfg.SourceEnabled("hlj") {
		t.Fatalf("empty list should enable every source")
	}

	cfg.EnabledSources = []string{"HLJ", " surugaya "}
	if !cfg.SourceEnabled("hlj") || !cfg.SourceEnabled("surugaya") {
		t.Fatalf("matching should be case-insensitive and trimmed")
	}
	if cfg.SourceEnabled("ninningame") {
		t.Fatalf("unlisted source should be disabled")
	}
}
