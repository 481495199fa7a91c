package sources

import (
	"context"
	"testing"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
	"github.com/cardscout-hq/cardscout-harvester/internal/fx"
	"github.com/cardscout-hq/cardscout-harvester/internal/sitemap"
	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
)

type stubResponse struct {
	body   []byte
	status int
}

func (s stubResponse) Body() []byte         { return s.body }
func (s stubResponse) StatusCode() int      { return s.status }
func (s stubResponse) Header(string) string { return "" }

// routeClient serves canned responses by exact URL; unknown URLs 404.
type routeClient struct {
	routes map[string]stubResponse
	calls  []string
}

func (r *routeClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	r.calls = append(r.calls, url)
	if resp, ok := r.routes[url]; ok {
		return resp, nil
	}
	return stubResponse{body: []byte("not found"), status: 404}, nil
}

func testSite() Site {
	return Site{
		ID:             "testshop",
		Name:           "Test Shop",
		Country:        "Japan",
		HomeURL:        "https://t.example",
		SearchURL:      "https://t.example/search?q=%s",
		Queries:        []string{"pokemon card"},
		RequestDelayMs: 1,
		Fallback: []FallbackItem{
			{Title: "Pokemon Card Booster Box", URL: "https://t.example/fallback/1", Amount: 40, Currency: "GBP"},
		},
	}
}

func testDeps(client *routeClient) Deps {
	fetcher := fetch.NewFetcher(client, fetch.FetcherOptions{MaxRetries: 0, Backoff: time.Millisecond})
	return Deps{
		Fetcher: fetcher,
		Crawler: sitemap.NewCrawler(fetcher, nil),
		Rates:   fx.NewConverter(nil, fx.Options{}),
	}
}

const searchResults = `<html><head><script type="application/ld+json">
{"@type": "Product", "name": "Pokemon Card 151 Booster Box", "url": "/p/151", "offers": {"price": "5800", "priceCurrency": "JPY"}}
</script></head></html>`

const productPage = `<html><head><script type="application/ld+json">
{"@type": "Product", "name": "Yugioh Rarity Collection Box", "url": "/p/rc", "offers": {"price": "3200", "priceCurrency": "JPY"}}
</script></head></html>`

const blockedPage = `<html><body>captcha required</body></html>`

func TestAcquireShortCircuitsAfterSearch(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{
		"https://t.example/search?q=pokemon+card": {body: []byte(searchResults), status: 200},
	}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, diag := adapter.Acquire(context.Background(), Query{}, RunOptions{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if diag.Status != domain.StatusLive {
		t.Fatalf("status = %s, want live", diag.Status)
	}
	if len(diag.Passes) != 1 || diag.Passes[0].Pass != domain.PassSearch {
		t.Fatalf("expected only the search pass, got %+v", diag.Passes)
	}
	if items[0].Origin != domain.PassSearch {
		t.Fatalf("origin = %s", items[0].Origin)
	}
	if items[0].SourceID != "testshop" || items[0].PriceGBP == 0 {
		t.Fatalf("item not finalized: %+v", items[0])
	}
	for _, url := range client.calls {
		if url == "https://t.example/sitemap.xml" {
			t.Fatalf("sitemap pass must not run when search yields")
		}
	}
}

func TestAcquireFallsThroughToSitemap(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{
		"https://t.example/search?q=pokemon+card": {body: []byte("<html><body>no hits</body></html>"), status: 200},
		"https://t.example/sitemap.xml":           {body: []byte(`<urlset><url><loc>https://t.example/p/rc</loc></url></urlset>`), status: 200},
		"https://t.example/p/rc":                  {body: []byte(productPage), status: 200},
	}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, diag := adapter.Acquire(context.Background(), Query{}, RunOptions{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item from sitemap, got %d", len(items))
	}
	if items[0].Origin != domain.PassSitemap {
		t.Fatalf("origin = %s", items[0].Origin)
	}
	if diag.Status != domain.StatusLive {
		t.Fatalf("status = %s, want live", diag.Status)
	}
	if len(diag.Passes) != 2 {
		t.Fatalf("expected search+sitemap passes, got %d", len(diag.Passes))
	}
	if outcome, ok := diag.PassOutcomeFor(domain.PassSearch); !ok || outcome.ParseMisses != 1 {
		t.Fatalf("search pass should record a parse miss: %+v", outcome)
	}
}

func TestAcquireBlockedEverywhereWithoutFallback(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{
		"https://t.example/search?q=pokemon+card": {body: []byte(blockedPage), status: 200},
		"https://t.example/sitemap.xml":           {body: []byte(blockedPage), status: 200},
	}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, diag := adapter.Acquire(context.Background(), Query{}, RunOptions{AllowFallback: false})
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
	if diag.Status != domain.StatusBlocked {
		t.Fatalf("status = %s, want blocked", diag.Status)
	}
	if len(diag.Passes) != 2 {
		t.Fatalf("expected two attempted passes, got %d", len(diag.Passes))
	}
	total := 0
	for _, po := range diag.Passes {
		total += po.Blocked
	}
	if total == 0 {
		t.Fatalf("blocked counters missing from diagnostics: %+v", diag.Passes)
	}
}

func TestAcquireFallbackWhenAllowed(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{
		"https://t.example/search?q=pokemon+card": {body: []byte(blockedPage), status: 200},
		"https://t.example/sitemap.xml":           {body: []byte(blockedPage), status: 200},
	}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, diag := adapter.Acquire(context.Background(), Query{}, RunOptions{AllowFallback: true})
	if len(items) != 1 {
		t.Fatalf("expected fallback item, got %d", len(items))
	}
	if items[0].Origin != domain.PassFallback {
		t.Fatalf("origin = %s, want fallback", items[0].Origin)
	}
	if diag.Status != domain.StatusFallback {
		t.Fatalf("status = %s, want fallback", diag.Status)
	}
	if len(diag.Passes) != 3 {
		t.Fatalf("expected three passes, got %d", len(diag.Passes))
	}
}

func TestAcquireExhaustiveRunsEveryPass(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{
		"https://t.example/search?q=pokemon+card": {body: []byte(searchResults), status: 200},
		"https://t.example/sitemap.xml":           {body: []byte(`<urlset><url><loc>https://t.example/p/rc</loc></url></urlset>`), status: 200},
		"https://t.example/p/rc":                  {body: []byte(productPage), status: 200},
	}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, diag := adapter.Acquire(context.Background(), Query{}, RunOptions{AllowFallback: true, Exhaustive: true})
	if len(diag.Passes) != 3 {
		t.Fatalf("exhaustive run should attempt all passes, got %d", len(diag.Passes))
	}
	origins := map[domain.Pass]bool{}
	for _, item := range items {
		origins[item.Origin] = true
	}
	if !origins[domain.PassSearch] || !origins[domain.PassSitemap] || !origins[domain.PassFallback] {
		t.Fatalf("expected items from all passes, got %v", origins)
	}
	if diag.Status != domain.StatusLive {
		t.Fatalf("live items must dominate status, got %s", diag.Status)
	}
}

func TestAcquireItemLimit(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
[
 {"@type": "Product", "name": "Pokemon Card A", "url": "/p/a", "offers": {"price": "100", "priceCurrency": "JPY"}},
 {"@type": "Product", "name": "Pokemon Card B", "url": "/p/b", "offers": {"price": "200", "priceCurrency": "JPY"}},
 {"@type": "Product", "name": "Pokemon Card C", "url": "/p/c", "offers": {"price": "300", "priceCurrency": "JPY"}}
]
</script></head></html>`
	client := &routeClient{routes: map[string]stubResponse{
		"https://t.example/search?q=pokemon+card": {body: []byte(page), status: 200},
	}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, _ := adapter.Acquire(context.Background(), Query{}, RunOptions{ItemLimit: 2})
	if len(items) != 2 {
		t.Fatalf("item limit not enforced, got %d", len(items))
	}
}

func TestAcquireTransientErrorsYieldErrorStatus(t *testing.T) {
	// Unrouted URLs return 404 (permanent); diagnostics must show error, not empty.
	client := &routeClient{routes: map[string]stubResponse{}}
	adapter := NewSiteAdapter(testSite(), testDeps(client))

	items, diag := adapter.Acquire(context.Background(), Query{}, RunOptions{})
	if len(items) != 0 {
		t.Fatalf("expected no items")
	}
	if diag.Status != domain.StatusError {
		t.Fatalf("status = %s, want error", diag.Status)
	}
}
