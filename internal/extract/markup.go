package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

const (
	minTitleLen    = 8
	maxMarkupItems = 30
)

// Hints are source-specific selectors supplied by the adapter for the
// markup fallback pass. All fields are optional; with no ItemSelector the
// extractor falls back to a generic anchor scan.
type Hints struct {
	ItemSelector         string
	TitleSelector        string
	LinkSelector         string
	PriceSelector        string
	AvailabilitySelector string
}

// itemsFromMarkup extracts listing cards using source selectors. Missing
// optional fields (price, availability) are left absent rather than failing
// the whole item.
func itemsFromMarkup(doc *goquery.Document, baseURL string, hints Hints) []domain.CandidateItem {
	if strings.TrimSpace(hints.ItemSelector) == "" {
		return itemsFromAnchors(doc, baseURL)
	}

	var items []domain.CandidateItem
	doc.Find(hints.ItemSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		item, ok := itemFromCard(card, baseURL, hints)
		if ok {
			items = append(items, item)
		}
		return len(items) < maxMarkupItems
	})
	return items
}

func itemFromCard(card *goquery.Selection, baseURL string, hints Hints) (domain.CandidateItem, bool) {
	link := card
	if hints.LinkSelector != "" {
		link = card.Find(hints.LinkSelector).First()
	} else if !card.Is("a") {
		link = card.Find("a[href]").First()
	}
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return domain.CandidateItem{}, false
	}

	title := ""
	if hints.TitleSelector != "" {
		title = NormalizeText(card.Find(hints.TitleSelector).First().Text())
	}
	if title == "" {
		title = NormalizeText(link.Text())
	}
	if title == "" {
		return domain.CandidateItem{}, false
	}

	item := domain.CandidateItem{
		Title: title,
		URL:   resolveURL(href, baseURL),
	}

	if hints.PriceSelector != "" {
		item.Price = ParsePrice(card.Find(hints.PriceSelector).First().Text())
	}
	if item.Price == nil {
		item.Price = findPriceIn(card.Text())
	}
	if hints.AvailabilitySelector != "" {
		item.Availability = classifyAvailability(card.Find(hints.AvailabilitySelector).First().Text())
	}
	return item, true
}

// itemsFromAnchors is the generic fallback: any anchor with a plausible
// title and a price-looking token in its enclosing card block.
func itemsFromAnchors(doc *goquery.Document, baseURL string) []domain.CandidateItem {
	var items []domain.CandidateItem

	doc.Find("a[href]").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		title := NormalizeText(anchor.Text())
		if len(title) < minTitleLen {
			return true
		}
		href, _ := anchor.Attr("href")
		if strings.TrimSpace(href) == "" {
			return true
		}

		// Marketplaces often place the price outside the anchor itself,
		// somewhere in the surrounding card block.
		price := findPriceIn(anchor.Text())
		if price == nil {
			if parent := anchor.Parent(); parent.Length() > 0 {
				price = findPriceIn(parent.Text())
			}
		}
		if price == nil {
			return true
		}

		items = append(items, domain.CandidateItem{
			Title: title,
			URL:   resolveURL(href, baseURL),
			Price: price,
		})
		return len(items) < maxMarkupItems
	})

	return items
}

func classifyAvailability(text string) string {
	low := strings.ToLower(NormalizeText(text))
	switch {
	case low == "":
		return ""
	case strings.Contains(low, "out of stock") || strings.Contains(low, "sold out"):
		return domain.AvailabilityOutOfStock
	case strings.Contains(low, "in stock") || strings.Contains(low, "available"):
		return domain.AvailabilityInStock
	}
	return ""
}

// resolveURL resolves href against base, tolerating malformed input by
// returning href unchanged.
func resolveURL(href, base string) string {
	parsedBase, err := url.Parse(base)
	if err != nil || base == "" {
		return href
	}
	parsedHref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return parsedBase.ResolveReference(parsedHref).String()
}
