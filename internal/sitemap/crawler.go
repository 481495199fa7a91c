// Package sitemap walks sitemap-index trees to enumerate candidate product
// URLs when direct search yields nothing.
package sitemap

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
)

const (
	maxDepth     = 3
	docCacheSize = 64
	defaultLimit = 200
	docCacheTTL  = 10 * time.Minute
)

// Fetcher is the fetch surface the crawler depends on.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) fetch.Outcome
}

// Filters gate which discovered URLs are yielded.
type Filters struct {
	// Include keeps only URLs containing at least one hint (empty = all).
	Include []string
	// Exclude drops URLs containing any of these fragments.
	Exclude []string
	// Limit bounds the number of yielded entries.
	Limit int
}

// Stats surfaces partial-failure information from one traversal.
type Stats struct {
	Documents   int
	Blocked     int
	FetchErrors int
}

// cachedDoc pairs a sitemap body with when it was fetched, so stale copies
// are refetched instead of served across harvest loops.
type cachedDoc struct {
	body    []byte
	fetched time.Time
}

// Crawler resolves sitemap indexes breadth-first with cycle protection.
// A fetch failure on any node skips that subtree and continues.
type Crawler struct {
	fetcher Fetcher
	cache   *lru.Cache[string, cachedDoc]
	log     logger.Logger
	now     func() time.Time
}

// NewCrawler builds a crawler around the given fetcher. Fetched sitemap
// documents are cached with a short TTL so repeated passes over the same
// site stay cheap without pinning stale documents.
func NewCrawler(fetcher Fetcher, log logger.Logger) *Crawler {
	cache, _ := lru.New[string, cachedDoc](docCacheSize)
	return &Crawler{
		fetcher: fetcher,
		cache:   cache,
		log:     logger.Ensure(log),
		now:     time.Now,
	}
}

// sitemapDoc covers both <sitemapindex> and <urlset> documents.
type sitemapDoc struct {
	Sitemaps []locEntry `xml:"sitemap"`
	URLs     []locEntry `xml:"url"`
}

type locEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Crawl walks the sitemap tree rooted at rootURL and returns matching
// entries. A fresh call re-walks from the root; traversal state is never
// retained. The visited set guarantees a sitemap referenced twice is
// traversed once.
func (c *Crawler) Crawl(ctx context.Context, rootURL string, filters Filters, opts fetch.Options) ([]domain.SitemapEntry, Stats) {
	if filters.Limit <= 0 {
		filters.Limit = defaultLimit
	}

	var (
		stats    Stats
		entries  []domain.SitemapEntry
		queue    = []string{rootURL}
		visited  = map[string]bool{}
		seenURLs = map[string]bool{}
		seq      = opts.Snapshot.Seq
	)

	for depth := 0; depth < maxDepth && len(queue) > 0 && len(entries) < filters.Limit; depth++ {
		batch := queue
		queue = nil

		for _, docURL := range batch {
			if ctx.Err() != nil {
				return entries, stats
			}
			if visited[docURL] {
				continue
			}
			visited[docURL] = true

			body, ok := c.fetchDoc(ctx, docURL, &opts, &seq, &stats)
			if !ok {
				continue
			}

			var doc sitemapDoc
			if err := xml.Unmarshal(body, &doc); err != nil {
				c.log.WarnObj("sitemap decode failed", "sitemap_error", map[string]any{
					"url":   docURL,
					"error": err.Error(),
				})
				stats.FetchErrors++
				continue
			}
			stats.Documents++

			for _, child := range doc.Sitemaps {
				if loc := strings.TrimSpace(child.Loc); loc != "" && !visited[loc] {
					queue = append(queue, loc)
				}
			}
			for _, entry := range doc.URLs {
				loc := strings.TrimSpace(entry.Loc)
				if loc == "" {
					continue
				}
				// Some sites nest further sitemaps inside <urlset>.
				if strings.HasSuffix(strings.ToLower(loc), ".xml") {
					if !visited[loc] {
						queue = append(queue, loc)
					}
					continue
				}
				if !matched(loc, filters) || seenURLs[loc] {
					continue
				}
				seenURLs[loc] = true
				entries = append(entries, domain.SitemapEntry{URL: loc, LastMod: strings.TrimSpace(entry.LastMod)})
				if len(entries) >= filters.Limit {
					return entries, stats
				}
			}
		}
	}

	return entries, stats
}

func (c *Crawler) fetchDoc(ctx context.Context, docURL string, opts *fetch.Options, seq *int, stats *Stats) ([]byte, bool) {
	if doc, ok := c.cache.Get(docURL); ok {
		if c.now().Sub(doc.fetched) < docCacheTTL {
			return doc.body, true
		}
		c.cache.Remove(docURL)
	}

	fetchOpts := *opts
	fetchOpts.Snapshot.Seq = *seq
	*seq++

	out := c.fetcher.Fetch(ctx, docURL, fetchOpts)
	switch out.Status {
	case domain.FetchOK:
		c.cache.Add(docURL, cachedDoc{body: out.Body, fetched: c.now()})
		return out.Body, true
	case domain.FetchBlocked:
		stats.Blocked++
	default:
		stats.FetchErrors++
	}
	return nil, false
}

func matched(loc string, filters Filters) bool {
	low := strings.ToLower(loc)
	for _, fragment := range filters.Exclude {
		if fragment != "" && strings.Contains(low, strings.ToLower(fragment)) {
			return false
		}
	}
	if len(filters.Include) == 0 {
		return true
	}
	for _, fragment := range filters.Include {
		if fragment != "" && strings.Contains(low, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}
