package domain

import "time"

// Domain contains core models shared across the acquisition pipeline.

// Pass identifies which acquisition pass produced an item or outcome.
type Pass string

const (
	PassSearch   Pass = "search"
	PassSitemap  Pass = "sitemap"
	PassFallback Pass = "fallback"
)

// SourceStatus is the final status resolved for one source after all passes.
type SourceStatus string

const (
	StatusLive     SourceStatus = "live"
	StatusFallback SourceStatus = "fallback"
	StatusBlocked  SourceStatus = "blocked"
	StatusError    SourceStatus = "error"
	StatusEmpty    SourceStatus = "empty"
)

// FetchStatus classifies a single fetch attempt chain.
type FetchStatus string

const (
	FetchOK        FetchStatus = "ok"
	FetchBlocked   FetchStatus = "blocked"
	FetchTransient FetchStatus = "transient_error"
	FetchPermanent FetchStatus = "permanent_error"
)

// Price is a parsed listing price. A nil *Price on an item means the price
// string could not be parsed; absence is valid and never drops the item.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Availability values carried on candidate items. Empty means unknown.
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
)

// CandidateItem is a product listing extracted from a source, not yet
// validated for profitability.
type CandidateItem struct {
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Price        *Price    `json:"price,omitempty"`
	PriceGBP     float64   `json:"price_gbp,omitempty"`
	ShippingGBP  float64   `json:"shipping_gbp,omitempty"`
	Availability string    `json:"availability,omitempty"`
	Origin       Pass      `json:"origin"`
	FetchedAtUTC time.Time `json:"fetched_at_utc"`
}

// PassOutcome summarizes what one acquisition pass did for a source.
type PassOutcome struct {
	Pass        Pass          `json:"pass"`
	Items       int           `json:"items"`
	Blocked     int           `json:"blocked"`
	FetchErrors int           `json:"fetch_errors"`
	ParseMisses int           `json:"parse_misses"`
	Elapsed     time.Duration `json:"elapsed"`
	Ran         bool          `json:"ran"`
}

// SourceDiagnostics is the per-source record of a single acquisition run.
// It is immutable once the adapter completes.
type SourceDiagnostics struct {
	SourceID   string        `json:"source_id"`
	SourceName string        `json:"source_name"`
	Status     SourceStatus  `json:"status"`
	Passes     []PassOutcome `json:"passes"`
}

// PassOutcomeFor returns the recorded outcome for the given pass.
func (d SourceDiagnostics) PassOutcomeFor(p Pass) (PassOutcome, bool) {
	for _, po := range d.Passes {
		if po.Pass == p {
			return po, true
		}
	}
	return PassOutcome{}, false
}

// SitemapEntry is a single URL discovered during one sitemap traversal.
// Entries are transient working state and are never retained across crawls.
type SitemapEntry struct {
	URL     string
	LastMod string
}
