// Package fx converts source-local prices to GBP using a rate table that is
// seeded with conservative defaults and refreshed from a public FX endpoint.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
)

const (
	DefaultEndpoint   = "https://api.frankfurter.dev/v1/latest"
	defaultRefreshTTL = 6 * time.Hour
	minRefreshTTL     = 5 * time.Minute
)

// Fallback currency-to-GBP rates used until a live refresh succeeds.
var defaultRates = map[string]float64{
	"GBP": 1.0,
	"EUR": 0.86,
	"USD": 0.79,
	"JPY": 0.0053,
}

// Converter holds the current rate table. Safe for concurrent use.
type Converter struct {
	mu          sync.RWMutex
	rates       map[string]float64
	lastRefresh time.Time

	client   httpclient.Client
	endpoint string
	ttl      time.Duration
	log      logger.Logger
}

// Options tunes a Converter.
type Options struct {
	Endpoint   string
	RefreshTTL time.Duration
	Log        logger.Logger
}

// NewConverter builds a converter seeded with the fallback table. A nil
// client disables live refresh entirely.
func NewConverter(client httpclient.Client, opts Options) *Converter {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.RefreshTTL < minRefreshTTL {
		opts.RefreshTTL = minRefreshTTL
	}

	rates := make(map[string]float64, len(defaultRates))
	for code, rate := range defaultRates {
		rates[code] = rate
	}
	return &Converter{
		rates:    rates,
		client:   client,
		endpoint: opts.Endpoint,
		ttl:      opts.RefreshTTL,
		log:      logger.Ensure(opts.Log),
	}
}

// ToGBP converts amount in the given currency. Unknown or empty currencies
// pass the amount through unchanged.
func (c *Converter) ToGBP(amount float64, currency string) float64 {
	if c == nil || currency == "" {
		return amount
	}
	c.mu.RLock()
	rate, ok := c.rates[strings.ToUpper(currency)]
	c.mu.RUnlock()
	if !ok {
		return amount
	}
	return amount * rate
}

// Refresh fetches fresh rates when the TTL has lapsed (or force is set).
// Failures keep the previous table; the method reports whether a refresh
// actually happened.
func (c *Converter) Refresh(ctx context.Context, force bool) bool {
	if c == nil || c.client == nil {
		return false
	}

	c.mu.RLock()
	fresh := !c.lastRefresh.IsZero() && time.Since(c.lastRefresh) < c.ttl
	c.mu.RUnlock()
	if fresh && !force {
		return false
	}

	symbols := make([]string, 0, len(defaultRates))
	for code := range defaultRates {
		if code != "GBP" {
			symbols = append(symbols, code)
		}
	}
	query := fmt.Sprintf("%s?base=GBP&symbols=%s", c.endpoint, strings.Join(symbols, ","))

	resp, err := c.client.Get(ctx, query, nil)
	if err != nil {
		c.log.WarnObj("fx refresh failed, keeping fallback rates", "fx_error", err.Error())
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.WarnObj("fx refresh returned non-200, keeping fallback rates", "fx_status", resp.StatusCode())
		return false
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || len(payload.Rates) == 0 {
		c.log.WarnObj("fx refresh payload unusable, keeping fallback rates", "fx_error", fmt.Sprint(err))
		return false
	}

	updated := map[string]float64{"GBP": 1.0}
	for _, code := range symbols {
		perGBP, ok := payload.Rates[code]
		if !ok || perGBP <= 0 {
			continue
		}
		// The API quotes target-per-GBP; store currency-to-GBP.
		updated[code] = 1.0 / perGBP
	}

	c.mu.Lock()
	for code, rate := range updated {
		c.rates[code] = rate
	}
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	return true
}

// EstimateShippingGBP approximates Japan-to-UK shipping for a listing price,
// clamped to the observed 12..35 GBP band.
func EstimateShippingGBP(priceGBP float64) float64 {
	estimate := 12.0 + priceGBP*0.08
	if estimate < 12.0 {
		estimate = 12.0
	}
	if estimate > 35.0 {
		estimate = 35.0
	}
	return float64(int(estimate*100+0.5)) / 100
}
