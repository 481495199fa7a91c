// Package sources contains per-marketplace adapter configs and the shared
// three-pass acquisition pipeline (search, sitemap, optional fallback).
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/extract"
	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
)

const defaultRequestDelayMs = 500

// AugmentFunc lets a site contribute extra items from a search response,
// e.g. a structured live-price endpoint alongside the HTML results.
type AugmentFunc func(ctx context.Context, fetcher *fetch.Fetcher, searchBody []byte, seq *int) []domain.CandidateItem

// FallbackItem is one entry of a site's static fallback catalog.
type FallbackItem struct {
	Title    string  `json:"title" yaml:"title"`
	URL      string  `json:"url" yaml:"url"`
	Amount   float64 `json:"amount" yaml:"amount"`
	Currency string  `json:"currency" yaml:"currency"`
}

// Site describes one marketplace: endpoints, selectors, filters, and the
// static fallback catalog. Adapters are a Site plus the shared pipeline.
type Site struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Country  string `json:"country" yaml:"country"`
	HomeURL  string `json:"home_url" yaml:"home_url"`
	// SearchURL carries a %s placeholder for the url-encoded query.
	SearchURL  string `json:"search_url" yaml:"search_url"`
	SitemapURL string `json:"sitemap_url" yaml:"sitemap_url"`

	Queries         []string `json:"queries" yaml:"queries"`
	SitemapIncludes []string `json:"sitemap_includes" yaml:"sitemap_includes"`
	SitemapExcludes []string `json:"sitemap_excludes" yaml:"sitemap_excludes"`
	ExtraCardTerms  []string `json:"extra_card_terms" yaml:"extra_card_terms"`

	ItemSelector         string `json:"item_selector" yaml:"item_selector"`
	TitleSelector        string `json:"title_selector" yaml:"title_selector"`
	LinkSelector         string `json:"link_selector" yaml:"link_selector"`
	PriceSelector        string `json:"price_selector" yaml:"price_selector"`
	AvailabilitySelector string `json:"availability_selector" yaml:"availability_selector"`

	Fallback []FallbackItem `json:"fallback" yaml:"fallback"`

	Required       bool              `json:"required" yaml:"required"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	Headers        map[string]string `json:"headers" yaml:"headers"`

	// SearchAugment is wired in code only, never from registry files.
	SearchAugment AugmentFunc `json:"-" yaml:"-"`
}

// Hints assembles the extractor selectors for this site.
func (s Site) Hints() extract.Hints {
	return extract.Hints{
		ItemSelector:         s.ItemSelector,
		TitleSelector:        s.TitleSelector,
		LinkSelector:         s.LinkSelector,
		PriceSelector:        s.PriceSelector,
		AvailabilitySelector: s.AvailabilitySelector,
	}
}

// RequestDelay returns the per-request throttle duration for the site.
func (s Site) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return defaultRequestDelayMs * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

func (s Site) sitemapRoot() string {
	if strings.TrimSpace(s.SitemapURL) != "" {
		return s.SitemapURL
	}
	return strings.TrimRight(s.HomeURL, "/") + "/sitemap.xml"
}

// Registry materializes site definitions, either built-in or loaded from a
// YAML/JSON file.
type Registry struct {
	mu    sync.RWMutex
	sites []Site
	idx   map[string]Site
}

type registryFile struct {
	Sources []Site `json:"sources" yaml:"sources"`
}

// BuiltinRegistry returns the registry of in-tree marketplace definitions.
func BuiltinRegistry() *Registry {
	reg, err := newRegistry([]Site{HLJSite(), NinNinGameSite(), SurugaYaSite()})
	if err != nil {
		// Built-in definitions are validated by tests; this is unreachable
		// for a correct build.
		panic(err)
	}
	return reg
}

// LoadRegistry loads site definitions from a YAML or JSON file. Entries
// whose ID matches a built-in site inherit that site's code-only hooks.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	builtin := map[string]Site{
		"hlj":        HLJSite(),
		"ninningame": NinNinGameSite(),
		"surugaya":   SurugaYaSite(),
	}
	for i := range parsed.Sources {
		if known, ok := builtin[strings.ToLower(strings.TrimSpace(parsed.Sources[i].ID))]; ok {
			parsed.Sources[i].SearchAugment = known.SearchAugment
		}
	}

	return newRegistry(parsed.Sources)
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	var parsed registryFile
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".json":
		if err := json.Unmarshal(data, &parsed); err != nil {
			return registryFile{}, fmt.Errorf("decode json sources: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return registryFile{}, fmt.Errorf("decode yaml sources: %w", err)
		}
	}
	return parsed, nil
}

func newRegistry(sites []Site) (*Registry, error) {
	reg := &Registry{
		sites: make([]Site, 0, len(sites)),
		idx:   make(map[string]Site, len(sites)),
	}
	for i := range sites {
		site := sanitizeSite(sites[i])
		if err := validateSite(site); err != nil {
			return nil, fmt.Errorf("source[%d]: %w", i, err)
		}
		if _, exists := reg.idx[site.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", site.ID)
		}
		reg.sites = append(reg.sites, site)
		reg.idx[site.ID] = site
	}
	return reg, nil
}

func sanitizeSite(s Site) Site {
	s.ID = strings.ToLower(strings.TrimSpace(s.ID))
	s.Name = strings.TrimSpace(s.Name)
	s.Country = strings.TrimSpace(s.Country)
	s.HomeURL = strings.TrimSpace(s.HomeURL)
	s.SearchURL = strings.TrimSpace(s.SearchURL)
	s.SitemapURL = strings.TrimSpace(s.SitemapURL)
	if s.Headers == nil {
		s.Headers = map[string]string{}
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	return s
}

func validateSite(s Site) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for source %q", s.ID)
	}
	if s.HomeURL == "" {
		return fmt.Errorf("home_url is required for source %q", s.ID)
	}
	if s.SearchURL == "" {
		return fmt.Errorf("search_url is required for source %q", s.ID)
	}
	if !strings.Contains(s.SearchURL, "%s") {
		return fmt.Errorf("search_url for source %q needs a %%s query placeholder", s.ID)
	}
	return nil
}

// All returns a copy of the registered sites.
func (r *Registry) All() []Site {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// ByID returns the site definition for the given id, if registered.
func (r *Registry) ByID(id string) (Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.idx[strings.ToLower(strings.TrimSpace(id))]
	return site, ok
}
