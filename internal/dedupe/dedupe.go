// Package dedupe collapses candidate items that point at the same listing.
package dedupe

import (
	"net/url"
	"strings"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

// Tracking parameters stripped during URL normalization. Items differing
// only by these must collapse to one entry.
var trackingParams = map[string]bool{
	"ref":       true,
	"fbclid":    true,
	"gclid":     true,
	"msclkid":   true,
	"mc_cid":    true,
	"mc_eid":    true,
	"igshid":    true,
	"spm":       true,
	"aff_id":    true,
	"affiliate": true,
}

// NormalizeURL canonicalizes raw for identity comparison: scheme and host
// lowercased, tracking query parameters stripped, trailing slash removed.
// Unparsable input falls back to a trimmed lowercase string.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	query := parsed.Query()
	for key := range query {
		if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			query.Del(key)
		}
	}
	parsed.RawQuery = query.Encode()

	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// Dedupe returns items with duplicate normalized URLs removed. The result
// is stable and order-preserving: the first occurrence wins. Applying
// Dedupe twice yields the same result as applying it once.
func Dedupe(items []domain.CandidateItem) []domain.CandidateItem {
	out := make([]domain.CandidateItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := NormalizeURL(item.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
