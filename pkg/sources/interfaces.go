package sources

import (
	"context"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/pkg/httpclient"
)

// Query describes what a run is looking for.
type Query struct {
	Category string
	Terms    []string
}

// RunOptions control adapter pass behavior for one acquisition run.
type RunOptions struct {
	// AllowFallback permits the static fallback pass.
	AllowFallback bool
	// Exhaustive disables the short-circuit after the first yielding pass.
	Exhaustive bool
	// ItemLimit bounds how many items one source may return.
	ItemLimit int
	// SitemapPageLimit bounds product pages fetched during the sitemap pass.
	SitemapPageLimit int
}

// Adapter acquires candidate items from one marketplace. Implementations
// always return diagnostics, including on total failure.
type Adapter interface {
	ID() string
	Name() string
	Required() bool
	Acquire(ctx context.Context, q Query, opts RunOptions) ([]domain.CandidateItem, domain.SourceDiagnostics)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
