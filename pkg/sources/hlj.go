package sources

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/fetch"
)

const (
	hljHomeURL      = "https://www.hlj.com/"
	hljLivePriceURL = "https://www.hlj.com/search/livePrice/?item_codes="
)

var (
	hljItemCodeRe = regexp.MustCompile(`id="en_name_([A-Za-z0-9]+)"`)
	hljItemNameRe = regexp.MustCompile(`(?i)id="en_name_([A-Za-z0-9]+)"[^>]*value="([^"]+)"`)
	hljItemLinkRe = regexp.MustCompile(`(?is)id="en_name_([A-Za-z0-9]+)".*?<a[^>]+href="([^"]+)"`)
)

// HLJSite describes HobbyLink Japan. Its search markup hides prices behind
// a structured live-price endpoint, wired in via SearchAugment.
func HLJSite() Site {
	return Site{
		ID:              "hlj",
		Name:            "HobbyLink Japan",
		Country:         "Japan",
		HomeURL:         hljHomeURL,
		SearchURL:       "https://www.hlj.com/search/?q=%s",
		Queries:         []string{"pokemon card", "one piece card game", "yugioh ocg", "japanese tcg"},
		SitemapIncludes: []string{"/product/", "/p/", "/-"},
		SitemapExcludes: []string{"/blog", "/news", "/category", "/search"},
		ExtraCardTerms:  []string{"union arena"},
		Required:        true,
		Fallback: []FallbackItem{
			{Title: "Pokemon TCG Booster Box", URL: "https://www.hlj.com/search/?q=pokemon+card+booster+box", Amount: 41.0, Currency: "GBP"},
			{Title: "One Piece Card Game Booster Box", URL: "https://www.hlj.com/search/?q=one+piece+card+game+booster+box", Amount: 56.0, Currency: "GBP"},
			{Title: "Yu-Gi-Oh OCG Booster Pack", URL: "https://www.hlj.com/search/?q=yugioh+ocg+booster", Amount: 24.0, Currency: "GBP"},
			{Title: "Union Arena TCG Starter Deck", URL: "https://www.hlj.com/search/?q=union+arena+starter+deck", Amount: 18.0, Currency: "GBP"},
		},
		SearchAugment: hljLivePriceAugment,
	}
}

// hljLivePriceAugment resolves item codes found in a search page against
// the live-price endpoint, which is structured and stable where the markup
// is not. Failures degrade silently to plain markup extraction.
func hljLivePriceAugment(ctx context.Context, fetcher *fetch.Fetcher, searchBody []byte, seq *int) []domain.CandidateItem {
	content := string(searchBody)
	codes := hljSearchItemCodes(content)
	if len(codes) == 0 {
		return nil
	}
	names := hljSearchItemNames(content)
	links := hljSearchItemLinks(content)

	out := fetcher.Fetch(ctx, hljLivePriceURL+strings.Join(codes, ","), fetch.Options{
		Snapshot: fetch.SnapshotKey{Source: "hlj", Pass: domain.PassSearch, Seq: *seq},
	})
	*seq++
	if !out.OK() {
		return nil
	}

	var priceMap map[string]struct {
		Name          string `json:"name"`
		PriceNoFormat any    `json:"priceNoFormat"`
	}
	if err := json.Unmarshal(out.Body, &priceMap); err != nil {
		return nil
	}

	var items []domain.CandidateItem
	for _, code := range codes {
		row, ok := priceMap[code]
		if !ok || row.PriceNoFormat == nil {
			continue
		}
		amount, ok := hljPriceValue(row.PriceNoFormat)
		if !ok {
			continue
		}

		rawURL := links[code]
		if rawURL == "" {
			continue
		}
		if !strings.HasPrefix(rawURL, "http") {
			rawURL = strings.TrimRight(hljHomeURL, "/") + rawURL
		}

		title := names[code]
		if title == "" {
			title = row.Name
		}
		if title == "" {
			title = code
		}

		items = append(items, domain.CandidateItem{
			Title: title,
			URL:   rawURL,
			Price: &domain.Price{Amount: amount, Currency: "GBP"},
		})
	}
	return items
}

func hljPriceValue(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return typed, typed >= 0
	case string:
		value, err := strconv.ParseFloat(strings.ReplaceAll(typed, ",", ""), 64)
		return value, err == nil && value >= 0
	}
	return 0, false
}

func hljSearchItemCodes(content string) []string {
	var codes []string
	for _, groups := range hljItemCodeRe.FindAllStringSubmatch(content, -1) {
		codes = append(codes, groups[1])
	}
	return codes
}

func hljSearchItemNames(content string) map[string]string {
	names := make(map[string]string)
	for _, groups := range hljItemNameRe.FindAllStringSubmatch(content, -1) {
		names[groups[1]] = groups[2]
	}
	return names
}

func hljSearchItemLinks(content string) map[string]string {
	links := make(map[string]string)
	for _, groups := range hljItemLinkRe.FindAllStringSubmatch(content, -1) {
		links[groups[1]] = groups[2]
	}
	return links
}
