package sources

import (
	"context"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/extract"
	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
	"github.com/cardscout-hq/cardscout-harvester/internal/fx"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
	"github.com/cardscout-hq/cardscout-harvester/internal/sitemap"
)

const (
	defaultItemLimit        = 36
	defaultSitemapPageLimit = 80
	sitemapURLMultiplier    = 3
)

// Deps are the pipeline pieces a site adapter composes. Each adapter owns
// its own instances; no mutable state is shared between adapters.
type Deps struct {
	Fetcher *fetch.Fetcher
	Crawler *sitemap.Crawler
	Rates   *fx.Converter
	Log     logger.Logger
}

// siteAdapter runs the fixed three-pass strategy for one Site.
type siteAdapter struct {
	site Site
	deps Deps
}

// NewSiteAdapter builds the adapter for a site definition.
func NewSiteAdapter(site Site, deps Deps) Adapter {
	deps.Log = logger.Ensure(deps.Log)
	return &siteAdapter{site: site, deps: deps}
}

func (a *siteAdapter) ID() string     { return a.site.ID }
func (a *siteAdapter) Name() string   { return a.site.Name }
func (a *siteAdapter) Required() bool { return a.site.Required }

// Acquire executes search, sitemap, and fallback passes in order,
// short-circuiting on the first pass that yields at least one item unless
// opts.Exhaustive is set. Diagnostics are accumulated on every path,
// including early returns.
func (a *siteAdapter) Acquire(ctx context.Context, q Query, opts RunOptions) ([]domain.CandidateItem, domain.SourceDiagnostics) {
	if opts.ItemLimit <= 0 {
		opts.ItemLimit = defaultItemLimit
	}
	if opts.SitemapPageLimit <= 0 {
		opts.SitemapPageLimit = defaultSitemapPageLimit
	}

	acc := newCollector(a.site, a.deps.Rates, opts.ItemLimit)
	diag := domain.SourceDiagnostics{SourceID: a.site.ID, SourceName: a.site.Name}

	diag.Passes = append(diag.Passes, a.searchPass(ctx, q, acc))

	if len(acc.items) == 0 || opts.Exhaustive {
		diag.Passes = append(diag.Passes, a.sitemapPass(ctx, opts, acc))
	}

	if opts.AllowFallback && (len(acc.items) == 0 || opts.Exhaustive) {
		diag.Passes = append(diag.Passes, a.fallbackPass(acc))
	}

	diag.Status = resolveStatus(acc, diag.Passes)

	a.deps.Log.InfoObj("source acquisition completed", "source_result", map[string]any{
		"source_id": a.site.ID,
		"status":    string(diag.Status),
		"items":     len(acc.items),
	})
	return acc.items, diag
}

// searchPass queries the source's search endpoint for each configured term.
func (a *siteAdapter) searchPass(ctx context.Context, q Query, acc *collector) domain.PassOutcome {
	start := time.Now()
	po := domain.PassOutcome{Pass: domain.PassSearch, Ran: true}
	seq := 0

	terms := append(append([]string{}, a.site.Queries...), q.Terms...)
	if len(terms) == 0 && q.Category != "" {
		terms = []string{q.Category}
	}

	for i, term := range terms {
		if acc.full() || ctx.Err() != nil {
			break
		}
		if i > 0 && !a.throttle(ctx) {
			break
		}

		searchURL := searchURLFor(a.site, term)
		out := a.deps.Fetcher.Fetch(ctx, searchURL, fetch.Options{
			Headers:  a.site.Headers,
			Snapshot: fetch.SnapshotKey{Source: a.site.ID, Pass: domain.PassSearch, Seq: seq},
		})
		seq++

		switch out.Status {
		case domain.FetchBlocked:
			po.Blocked++
			continue
		case domain.FetchTransient, domain.FetchPermanent:
			po.FetchErrors++
			continue
		}

		if a.site.SearchAugment != nil {
			for _, item := range a.site.SearchAugment(ctx, a.deps.Fetcher, out.Body, &seq) {
				if acc.add(item, domain.PassSearch) {
					po.Items++
				}
				if acc.full() {
					break
				}
			}
			if acc.full() {
				break
			}
		}

		items, _, err := extract.Extract(out.Body, searchURL, a.site.Hints())
		if err != nil || len(items) == 0 {
			po.ParseMisses++
			continue
		}
		for _, item := range items {
			if acc.add(item, domain.PassSearch) {
				po.Items++
			}
			if acc.full() {
				break
			}
		}
	}

	po.Elapsed = time.Since(start)
	return po
}

// sitemapPass enumerates product URLs via the sitemap tree and extracts one
// listing per page, bounded by the configured page limit.
func (a *siteAdapter) sitemapPass(ctx context.Context, opts RunOptions, acc *collector) domain.PassOutcome {
	start := time.Now()
	po := domain.PassOutcome{Pass: domain.PassSitemap, Ran: true}

	entries, stats := a.deps.Crawler.Crawl(ctx, a.site.sitemapRoot(), sitemap.Filters{
		Include: a.site.SitemapIncludes,
		Exclude: a.site.SitemapExcludes,
		Limit:   opts.SitemapPageLimit * sitemapURLMultiplier,
	}, fetch.Options{
		Headers:  a.site.Headers,
		Snapshot: fetch.SnapshotKey{Source: a.site.ID, Pass: domain.PassSitemap},
	})
	po.Blocked += stats.Blocked
	po.FetchErrors += stats.FetchErrors

	seq := stats.Documents + stats.Blocked + stats.FetchErrors
	fetched := 0
	for _, entry := range entries {
		if acc.full() || ctx.Err() != nil || fetched >= opts.SitemapPageLimit {
			break
		}
		if fetched > 0 && !a.throttle(ctx) {
			break
		}

		out := a.deps.Fetcher.Fetch(ctx, entry.URL, fetch.Options{
			Headers:  a.site.Headers,
			Snapshot: fetch.SnapshotKey{Source: a.site.ID, Pass: domain.PassSitemap, Seq: seq},
		})
		seq++
		fetched++

		switch out.Status {
		case domain.FetchBlocked:
			po.Blocked++
			continue
		case domain.FetchTransient, domain.FetchPermanent:
			po.FetchErrors++
			continue
		}

		item, ok := extract.FirstProduct(entry.URL, out.Body, a.site.Hints())
		if !ok {
			po.ParseMisses++
			continue
		}
		if acc.add(item, domain.PassSitemap) {
			po.Items++
		}
	}

	po.Elapsed = time.Since(start)
	return po
}

// fallbackPass emits the static catalog, every item tagged with the
// fallback provenance marker so consumers can tell it apart from live data.
func (a *siteAdapter) fallbackPass(acc *collector) domain.PassOutcome {
	start := time.Now()
	po := domain.PassOutcome{Pass: domain.PassFallback, Ran: true}

	for _, entry := range a.site.Fallback {
		if acc.full() {
			break
		}
		item := domain.CandidateItem{
			Title: entry.Title,
			URL:   entry.URL,
			Price: &domain.Price{Amount: entry.Amount, Currency: entry.Currency},
		}
		if acc.add(item, domain.PassFallback) {
			po.Items++
		}
	}

	po.Elapsed = time.Since(start)
	return po
}

// throttle applies the per-site request delay, honoring cancellation.
func (a *siteAdapter) throttle(ctx context.Context) bool {
	delay := a.site.RequestDelay()
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// resolveStatus collapses pass outcomes into the source's final status.
// Priority: live > fallback > blocked > error > empty, so root causes stay
// obvious in diagnostics.
func resolveStatus(acc *collector, passes []domain.PassOutcome) domain.SourceStatus {
	liveItems := acc.countByOrigin(domain.PassSearch) + acc.countByOrigin(domain.PassSitemap)
	fallbackItems := acc.countByOrigin(domain.PassFallback)

	blocked, fetchErrors := 0, 0
	for _, po := range passes {
		blocked += po.Blocked
		fetchErrors += po.FetchErrors
	}

	switch {
	case liveItems > 0:
		return domain.StatusLive
	case fallbackItems > 0:
		return domain.StatusFallback
	case blocked > 0:
		return domain.StatusBlocked
	case fetchErrors > 0:
		return domain.StatusError
	default:
		return domain.StatusEmpty
	}
}
