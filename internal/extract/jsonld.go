package extract

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

// itemsFromJSONLD scans embedded linked-data blocks for Product entries.
// Each script block is parsed independently; a malformed block is skipped,
// never fatal to the page.
func itemsFromJSONLD(doc *goquery.Document, baseURL string) []domain.CandidateItem {
	var items []domain.CandidateItem

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(sel.Text())), &payload); err != nil {
			return
		}
		walkJSONLD(payload, baseURL, &items)
	})

	return items
}

// walkJSONLD recurses through arbitrarily nested JSON-LD looking for
// @type == "Product" objects (including @graph containers). Object keys
// are visited in a fixed order so identical input always yields products
// in the same sequence.
func walkJSONLD(node any, baseURL string, items *[]domain.CandidateItem) {
	switch typed := node.(type) {
	case []any:
		for _, child := range typed {
			walkJSONLD(child, baseURL, items)
		}
	case map[string]any:
		if isProductType(typed["@type"]) {
			if item, ok := productFromJSONLD(typed, baseURL); ok {
				*items = append(*items, item)
			}
		}
		for _, key := range traversalKeys(typed) {
			walkJSONLD(typed[key], baseURL, items)
		}
	}
}

// Container keys publishers commonly nest products under; these are
// descended first, in declaration order.
var containerKeys = []string{"@graph", "mainEntity", "itemListElement", "hasPart"}

// traversalKeys orders an object's keys: known containers first, then the
// remainder sorted.
func traversalKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	known := map[string]bool{}
	for _, key := range containerKeys {
		if _, ok := obj[key]; ok {
			keys = append(keys, key)
			known[key] = true
		}
	}

	rest := make([]string, 0, len(obj))
	for key := range obj {
		if !known[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func isProductType(raw any) bool {
	switch typed := raw.(type) {
	case string:
		return typed == "Product"
	case []any:
		for _, entry := range typed {
			if s, ok := entry.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func productFromJSONLD(obj map[string]any, baseURL string) (domain.CandidateItem, bool) {
	name, _ := obj["name"].(string)
	rawURL, _ := obj["url"].(string)
	if strings.TrimSpace(name) == "" || strings.TrimSpace(rawURL) == "" {
		return domain.CandidateItem{}, false
	}

	item := domain.CandidateItem{
		Title: NormalizeText(name),
		URL:   resolveURL(rawURL, baseURL),
	}

	offer := firstOffer(obj["offers"])
	if offer != nil {
		item.Price = priceFromOffer(offer)
		item.Availability = availabilityFromOffer(offer)
	}
	return item, true
}

// firstOffer unwraps offers declared as a single object or a list.
func firstOffer(raw any) map[string]any {
	switch typed := raw.(type) {
	case map[string]any:
		return typed
	case []any:
		for _, entry := range typed {
			if m, ok := entry.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func priceFromOffer(offer map[string]any) *domain.Price {
	var raw string
	switch typed := offer["price"].(type) {
	case string:
		raw = typed
	case float64:
		return currencyOrInferred(typed, offer)
	default:
		return nil
	}

	amount, ok := ExtractNumber(raw)
	if !ok {
		return nil
	}
	price := &domain.Price{Amount: amount}
	if currency, ok := offer["priceCurrency"].(string); ok {
		price.Currency = strings.ToUpper(strings.TrimSpace(currency))
	}
	if price.Currency == "" {
		price.Currency = InferCurrency(raw)
	}
	if price.Amount < 0 {
		return nil
	}
	return price
}

func currencyOrInferred(amount float64, offer map[string]any) *domain.Price {
	if amount < 0 {
		return nil
	}
	price := &domain.Price{Amount: amount}
	if currency, ok := offer["priceCurrency"].(string); ok {
		price.Currency = strings.ToUpper(strings.TrimSpace(currency))
	}
	return price
}

func availabilityFromOffer(offer map[string]any) string {
	raw, _ := offer["availability"].(string)
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(low, "outofstock"):
		return domain.AvailabilityOutOfStock
	case strings.Contains(low, "instock"):
		return domain.AvailabilityInStock
	}
	return ""
}
