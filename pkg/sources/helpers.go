package sources

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/dedupe"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/fx"
)

// Core keyword set shared by all trading-card sources; per-site extras are
// declared on the Site.
var baseTradingCardTerms = []string{
	"card",
	"tcg",
	"booster",
	"starter deck",
	"deck",
	"yugioh",
	"yu-gi-oh",
	"pokemon",
	"one piece card",
	"duel masters",
	"weiss schwarz",
}

// isTradingCardTitle reports whether title looks like a trading-card product.
func isTradingCardTitle(title string, extraTerms []string) bool {
	low := strings.ToLower(title)
	for _, term := range baseTradingCardTerms {
		if strings.Contains(low, term) {
			return true
		}
	}
	for _, term := range extraTerms {
		if term != "" && strings.Contains(low, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func searchURLFor(site Site, term string) string {
	return fmt.Sprintf(site.SearchURL, url.QueryEscape(term))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// collector accumulates candidate items for one adapter invocation,
// enforcing the per-source URL uniqueness and item limit.
type collector struct {
	site      Site
	rates     *fx.Converter
	limit     int
	fetchedAt time.Time

	items []domain.CandidateItem
	seen  map[string]bool
}

func newCollector(site Site, rates *fx.Converter, limit int) *collector {
	return &collector{
		site:      site,
		rates:     rates,
		limit:     limit,
		fetchedAt: time.Now().UTC(),
		seen:      make(map[string]bool),
	}
}

// add finalizes and appends a partially-populated item. It returns false
// for duplicates, malformed rows, or titles outside the trading-card scope.
func (c *collector) add(item domain.CandidateItem, origin domain.Pass) bool {
	item.Title = strings.TrimSpace(item.Title)
	item.URL = strings.TrimSpace(item.URL)
	if item.Title == "" || item.URL == "" {
		return false
	}
	if !isTradingCardTitle(item.Title, c.site.ExtraCardTerms) {
		return false
	}

	key := dedupe.NormalizeURL(item.URL)
	if c.seen[key] {
		return false
	}

	if item.Price != nil {
		if item.Price.Amount < 0 {
			item.Price = nil
		} else {
			item.PriceGBP = round2(c.rates.ToGBP(item.Price.Amount, item.Price.Currency))
			item.ShippingGBP = fx.EstimateShippingGBP(item.PriceGBP)
		}
	}

	item.SourceID = c.site.ID
	item.SourceName = c.site.Name
	item.Origin = origin
	item.FetchedAtUTC = c.fetchedAt

	c.seen[key] = true
	c.items = append(c.items, item)
	return true
}

func (c *collector) full() bool { return len(c.items) >= c.limit }

func (c *collector) countByOrigin(origin domain.Pass) int {
	n := 0
	for _, item := range c.items {
		if item.Origin == origin {
			n++
		}
	}
	return n
}
