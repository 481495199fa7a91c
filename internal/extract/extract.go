// Package extract turns fetched pages into partially-populated candidate
// items. Embedded JSON-LD product blocks are preferred; markup-selector
// extraction is the fallback when no structured data is present.
package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

// Method records which extraction pass produced the items.
type Method string

const (
	MethodJSONLD Method = "jsonld"
	MethodMarkup Method = "markup"
	MethodNone   Method = "none"
)

// Extract parses body and returns items in document order; consumers rely
// on first-seen-wins semantics during deduplication, so no reordering
// happens here. The markup pass runs only when JSON-LD yields nothing.
func Extract(body []byte, baseURL string, hints Hints) ([]domain.CandidateItem, Method, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, MethodNone, fmt.Errorf("parse html: %w", err)
	}

	if items := itemsFromJSONLD(doc, baseURL); len(items) > 0 {
		return items, MethodJSONLD, nil
	}
	if items := itemsFromMarkup(doc, baseURL, hints); len(items) > 0 {
		return items, MethodMarkup, nil
	}
	return nil, MethodNone, nil
}

// FirstProduct extracts the single best product from a product detail page,
// used by the sitemap pass where each URL is expected to be one listing.
func FirstProduct(pageURL string, body []byte, hints Hints) (domain.CandidateItem, bool) {
	items, _, err := Extract(body, pageURL, hints)
	if err != nil || len(items) == 0 {
		return domain.CandidateItem{}, false
	}
	item := items[0]
	if item.URL == "" {
		item.URL = pageURL
	}
	return item, true
}
