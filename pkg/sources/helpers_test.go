package sources

import (
	"testing"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
	"github.com/cardscout-hq/cardscout-harvester/internal/fx"
)

func TestIsTradingCardTitle(t *testing.T) {
	cases := []struct {
		title string
		extra []string
		want  bool
	}{
		{"Pokemon Card Game Scarlet & Violet", nil, true},
		{"Yu-Gi-Oh OCG Structure Deck", nil, true},
		{"Weiss Schwarz Booster", nil, true},
		{"Gundam Model Kit MG 1/100", nil, false},
		{"Union Arena Starter", []string{"union arena"}, true},
		{"Union Arena Starter", nil, false},
	}

	for _, tc := range cases {
		if got := isTradingCardTitle(tc.title, tc.extra); got != tc.want {
			t.Fatalf("isTradingCardTitle(%q, %v) = %v, want %v", tc.title, tc.extra, got, tc.want)
		}
	}
}

func TestSearchURLFor(t *testing.T) {
	site := Site{SearchURL: "https://x.example/s?q=%s"}
	if got := searchURLFor(site, "pokemon card 151"); got != "https://x.example/s?q=pokemon+card+151" {
		t.Fatalf("searchURLFor = %q", got)
	}
}

func TestCollectorAdd(t *testing.T) {
	site := testSite()
	acc := newCollector(site, fx.NewConverter(nil, fx.Options{}), 10)

	ok := acc.add(domain.CandidateItem{
		Title: "Pokemon Card 151 Booster Box",
		URL:   "https://t.example/p/151?utm_source=feed",
		Price: &domain.Price{Amount: 10000, Currency: "JPY"},
	}, domain.PassSearch)
	if !ok {
		t.Fatalf("add rejected a valid item")
	}

	item := acc.items[0]
	if item.SourceID != "testshop" || item.SourceName != "Test Shop" {
		t.Fatalf("source fields not filled: %+v", item)
	}
	if item.PriceGBP != 53 {
		t.Fatalf("PriceGBP = %v, want 53", item.PriceGBP)
	}
	if item.ShippingGBP != 16.24 {
		t.Fatalf("ShippingGBP = %v, want 16.24", item.ShippingGBP)
	}

	// Same listing with different tracking params is a duplicate.
	if acc.add(domain.CandidateItem{
		Title: "Pokemon Card 151 Booster Box",
		URL:   "https://t.example/p/151?utm_source=mail",
	}, domain.PassSitemap) {
		t.Fatalf("tracking-param variant should be rejected as duplicate")
	}

	if acc.add(domain.CandidateItem{Title: "Gundam Kit", URL: "https://t.example/p/gundam"}, domain.PassSearch) {
		t.Fatalf("non-card title should be rejected")
	}
	if acc.add(domain.CandidateItem{Title: "", URL: "https://t.example/p/x"}, domain.PassSearch) {
		t.Fatalf("empty title should be rejected")
	}

	// Negative price is dropped; the item survives with price absent.
	if !acc.add(domain.CandidateItem{
		Title: "One Piece Card Game Promo",
		URL:   "https://t.example/p/op",
		Price: &domain.Price{Amount: -5, Currency: "JPY"},
	}, domain.PassSearch) {
		t.Fatalf("negative price should not reject the item")
	}
	last := acc.items[len(acc.items)-1]
	if last.Price != nil || last.PriceGBP != 0 {
		t.Fatalf("negative price should clear the price fields: %+v", last)
	}
}
