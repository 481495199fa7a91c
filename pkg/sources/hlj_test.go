package sources

import (
	"context"
	"testing"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
)

const hljSearchBody = `<html><body>
<input id="en_name_GOODS123" value="Pokemon Card 151 Booster Box" />
<div><a href="/p/goods123">detail</a></div>
<input id="en_name_GOODS456" value="One Piece Card Game OP-09 Box" />
<div><a href="https://www.hlj.com/p/goods456">detail</a></div>
<input id="en_name_GOODS789" value="No Price Item" />
<div><a href="/p/goods789">detail</a></div>
</body></html>`

const hljLivePriceBody = `{
  "GOODS123": {"name": "Pokemon Card 151 Booster Box", "priceNoFormat": "41.99"},
  "GOODS456": {"name": "One Piece Card Game OP-09 Box", "priceNoFormat": 55.5},
  "GOODS789": {"name": "No Price Item", "priceNoFormat": null}
}`

func TestHLJLivePriceAugment(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{
		hljLivePriceURL + "GOODS123,GOODS456,GOODS789": {body: []byte(hljLivePriceBody), status: 200},
	}}
	fetcher := fetch.NewFetcher(client, fetch.FetcherOptions{MaxRetries: 0, Backoff: time.Millisecond})

	seq := 0
	items := hljLivePriceAugment(context.Background(), fetcher, []byte(hljSearchBody), &seq)
	if len(items) != 2 {
		t.Fatalf("expected 2 priced items, got %d: %+v", len(items), items)
	}
	if seq != 1 {
		t.Fatalf("augment must advance the snapshot sequence, seq=%d", seq)
	}

	first := items[0]
	if first.Title != "Pokemon Card 151 Booster Box" {
		t.Fatalf("title = %q", first.Title)
	}
	if first.URL != "https://www.hlj.com/p/goods123" {
		t.Fatalf("relative link not resolved: %q", first.URL)
	}
	if first.Price == nil || first.Price.Amount != 41.99 || first.Price.Currency != "GBP" {
		t.Fatalf("string price not parsed: %+v", first.Price)
	}

	second := items[1]
	if second.Price == nil || second.Price.Amount != 55.5 {
		t.Fatalf("numeric price not parsed: %+v", second.Price)
	}
}

func TestHLJAugmentDegradesSilently(t *testing.T) {
	client := &routeClient{routes: map[string]stubResponse{}}
	fetcher := fetch.NewFetcher(client, fetch.FetcherOptions{MaxRetries: 0, Backoff: time.Millisecond})

	seq := 0
	if items := hljLivePriceAugment(context.Background(), fetcher, []byte("<html>no codes</html>"), &seq); items != nil {
		t.Fatalf("no item codes should yield nil, got %+v", items)
	}
	if items := hljLivePriceAugment(context.Background(), fetcher, []byte(hljSearchBody), &seq); items != nil {
		t.Fatalf("failed live-price fetch should yield nil, got %+v", items)
	}
}
