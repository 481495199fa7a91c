package extract

import (
	"testing"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		amount   float64
		currency string
		nilPrice bool
	}{
		{name: "yen symbol with thousands separator", in: "¥12,345", amount: 12345, currency: "JPY"},
		{name: "yen kanji suffix", in: "3,200円", amount: 3200, currency: "JPY"},
		{name: "html entity yen", in: "&yen;1,980", amount: 1980, currency: "JPY"},
		{name: "pound with decimals", in: "£19.99", amount: 19.99, currency: "GBP"},
		{name: "dollars", in: "$5.50", amount: 5.5, currency: "USD"},
		{name: "iso code suffix", in: "1200 JPY", amount: 1200, currency: "JPY"},
		{name: "number without currency", in: "450", amount: 450, currency: ""},
		{name: "contact us", in: "Contact us", nilPrice: true},
		{name: "empty", in: "", nilPrice: true},
		{name: "whitespace only", in: "   ", nilPrice: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePrice(tc.in)
			if tc.nilPrice {
				if got != nil {
					t.Fatalf("ParsePrice(%q) = %+v, want nil", tc.in, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParsePrice(%q) = nil, want %v %s", tc.in, tc.amount, tc.currency)
			}
			if got.Amount != tc.amount || got.Currency != tc.currency {
				t.Fatalf("ParsePrice(%q) = %v %s, want %v %s", tc.in, got.Amount, got.Currency, tc.amount, tc.currency)
			}
		})
	}
}

func TestFindPriceInFreeText(t *testing.T) {
	price := findPriceIn("Charizard EX holo card ¥4,980 tax included")
	if price == nil || price.Amount != 4980 || price.Currency != "JPY" {
		t.Fatalf("findPriceIn = %+v", price)
	}

	if findPriceIn("no price on this line") != nil {
		t.Fatalf("expected nil for text without price token")
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Booster&nbsp;Box \n\t Pok&eacute;mon  ")
	if got != "Booster Box Pokémon" {
		t.Fatalf("NormalizeText = %q", got)
	}
}
