package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/acquire"
	"github.com/cardscout-hq/cardscout-harvester/internal/config"
	"github.com/cardscout-hq/cardscout-harvester/internal/dedupe"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
	"github.com/cardscout-hq/cardscout-harvester/internal/fx"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
	"github.com/cardscout-hq/cardscout-harvester/internal/sitemap"
	"github.com/cardscout-hq/cardscout-harvester/internal/storage"
	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
	"github.com/cardscout-hq/cardscout-harvester/pkg/publishers"
	"github.com/cardscout-hq/cardscout-harvester/pkg/sources"
)

// Harvester represents the acquisition runtime. It wires the fetch pipeline,
// source adapters, orchestrator, seen-item storage, and publishers, and
// manages the periodic run loop.
type Harvester struct {
	cfg          *config.Config
	orchestrator *acquire.Orchestrator
	rates        *fx.Converter
	fanout       *publishers.Fanout
	store        storage.Store
	runInterval  time.Duration
	log          logger.Logger
}

// NewHarvester builds the harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := loadSources(cfg)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}

	signatures := fetch.DefaultSignatures()
	if cfg.SignaturesFile != "" {
		if err := signatures.Reload(cfg.SignaturesFile); err != nil {
			return nil, fmt.Errorf("load block signatures: %w", err)
		}
	}

	client := httpclient.NewRestyClient(cfg.RequestTimeout)

	var snapshots *fetch.SnapshotSink
	if cfg.DebugSources {
		snapshots = fetch.NewSnapshotSink(cfg.DebugDir, log)
	}

	// The host limiter, snapshot sink, and metrics are shared so parallel
	// adapters stay inside one rate budget and one collector set; each
	// adapter owns its fetcher and crawler.
	limiter := fetch.NewHostLimiter(cfg.HostRateLimitRPS)
	metrics := fetch.NewMetrics()

	rates := fx.NewConverter(client, fx.Options{
		Endpoint:   cfg.FXEndpoint,
		RefreshTTL: time.Duration(cfg.FXRefreshSeconds) * time.Second,
		Log:        log,
	})

	var adapters []sources.Adapter
	adapterIDs := make([]string, 0, len(sourceReg.All()))
	for _, site := range sourceReg.All() {
		if !cfg.SourceEnabled(site.ID) {
			continue
		}
		fetcher := fetch.NewFetcher(client, fetch.FetcherOptions{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			Signatures: signatures,
			Limiter:    limiter,
			Snapshots:  snapshots,
			Metrics:    metrics,
			Log:        log,
		})
		deps := sources.Deps{
			Fetcher: fetcher,
			Crawler: sitemap.NewCrawler(fetcher, log),
			Rates:   rates,
			Log:     log,
		}
		adapters = append(adapters, sources.NewSiteAdapter(site, deps))
		adapterIDs = append(adapterIDs, site.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(adapterIDs),
		"ids":   adapterIDs,
	})

	orchestrator, err := acquire.NewOrchestrator(adapters, acquire.Options{
		StrictLive: cfg.StrictLive,
		Run: sources.RunOptions{
			AllowFallback:    cfg.AllowFallback,
			Exhaustive:       cfg.ExhaustivePasses,
			ItemLimit:        cfg.ItemLimit,
			SitemapPageLimit: cfg.SitemapPageLimit,
		},
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	fanout, err := loadPublishers(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		ItemTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"item_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Harvester{
		cfg:          cfg,
		orchestrator: orchestrator,
		rates:        rates,
		fanout:       fanout,
		store:        store,
		runInterval:  cfg.CrawlInterval,
		log:          log,
	}, nil
}

// loadSources resolves the site registry, preferring the config file over
// the compiled-in defaults.
func loadSources(cfg *config.Config) (*sources.Registry, error) {
	if cfg.SourcesFile != "" {
		return sources.LoadRegistry(cfg.SourcesFile)
	}
	return sources.BuiltinRegistry(), nil
}

// loadPublishers builds the fanout from the publishers file. Publishers are
// optional; with no file configured the harvester only logs run results.
func loadPublishers(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Run starts the acquisition loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.orchestrator == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.closeStore()

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"publishers_count": h.fanout.Size(),
		"run_interval":     h.runInterval.String(),
	})

	if _, err := h.RunOnce(ctx); err != nil {
		h.log.ErrorObj("initial acquisition failed", "error", err.Error())
	}

	ticker := time.NewTicker(h.runInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if _, err := h.RunOnce(ctx); err != nil {
				h.log.ErrorObj("scheduled acquisition failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single acquisition run and publishes the results.
// The returned result carries diagnostics for every source even when the
// run fails the strict-live gate.
func (h *Harvester) RunOnce(ctx context.Context) (acquire.Result, error) {
	start := time.Now()
	runID := fmt.Sprintf("run-%s", start.UTC().Format("20060102T150405.000Z0700"))

	h.rates.Refresh(ctx, false)

	result, err := h.orchestrator.Run(ctx, sources.Query{
		Category: h.cfg.QueryCategory,
		Terms:    h.cfg.QueryTerms,
	})
	if err != nil {
		var violation *acquire.StrictLiveViolation
		if errors.As(err, &violation) {
			h.log.ErrorObj("strict-live gate rejected run", "strict_live_violation", map[string]any{
				"run_id":    runID,
				"offending": violation.Offending,
			})
		}
		return result, err
	}

	fresh, err := h.filterSeen(result.Items)
	if err != nil {
		h.log.WarnObj("seen-item lookup failed; publishing full set", "error", err.Error())
		fresh = result.Items
	}

	evt := publishers.Event{
		RunID:       runID,
		Category:    h.cfg.QueryCategory,
		Items:       fresh,
		Diagnostics: orderedDiagnostics(result),
		CompletedAt: time.Now().UTC(),
	}
	delivery := h.fanout.Publish(ctx, evt)
	if err := delivery.Err(); err != nil {
		h.log.ErrorObj("publish fanout reported failures", "publish_errors", err.Error())
	}
	if delivery.Delivered > 0 || h.fanout.Size() == 0 {
		h.markSeen(fresh)
	}

	h.log.InfoObj("acquisition run finished", "run_meta", map[string]any{
		"run_id":         runID,
		"items_total":    len(result.Items),
		"items_fresh":    len(fresh),
		"publishers_ok":  delivery.Delivered,
		"elapsed_ms":     time.Since(start).Milliseconds(),
		"sources_polled": len(result.Diagnostics),
	})
	return result, nil
}

// filterSeen drops items whose normalized URL was already published within
// the storage TTL. Normalizing here keeps tracking-param variants of the
// same listing on one store key.
func (h *Harvester) filterSeen(items []domain.CandidateItem) ([]domain.CandidateItem, error) {
	if len(items) == 0 {
		return items, nil
	}
	fresh := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		seen, err := h.store.SeenItem(dedupe.NormalizeURL(item.URL))
		if err != nil {
			return nil, err
		}
		if !seen {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

// markSeen records published items so later runs skip them.
func (h *Harvester) markSeen(items []domain.CandidateItem) {
	for _, item := range items {
		if err := h.store.MarkItem(dedupe.NormalizeURL(item.URL)); err != nil {
			h.log.WarnObj("mark seen item failed", "storage_error", map[string]any{
				"url":   item.URL,
				"error": err.Error(),
			})
		}
	}
}

// orderedDiagnostics flattens the diagnostics map into a deterministic slice
// for the published event.
func orderedDiagnostics(result acquire.Result) []domain.SourceDiagnostics {
	out := make([]domain.SourceDiagnostics, 0, len(result.Diagnostics))
	for _, diag := range result.Diagnostics {
		out = append(out, diag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Close releases resources held by the harvester. Run closes them itself;
// callers driving RunOnce directly use Close.
func (h *Harvester) Close() {
	h.closeStore()
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (h *Harvester) closeStore() {
	if h == nil || h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
