package dedupe

import (
	"testing"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Item", "https://example.com/Item"},
		{"strips utm parameters", "https://example.com/p?utm_source=x&utm_medium=y&id=5", "https://example.com/p?id=5"},
		{"strips tracking parameters", "https://example.com/p?fbclid=abc&ref=home", "https://example.com/p"},
		{"drops fragment", "https://example.com/p#reviews", "https://example.com/p"},
		{"trims trailing slash", "https://example.com/p/", "https://example.com/p"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"unparsable falls back to lowercase", "not a url", "not a url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeURL(tc.in); got != tc.want {
				t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDedupeFirstSeenWins(t *testing.T) {
	items := []domain.CandidateItem{
		{SourceID: "a", Title: "first", URL: "https://example.com/p?utm_source=mail"},
		{SourceID: "b", Title: "second", URL: "https://Example.com/p"},
		{SourceID: "b", Title: "third", URL: "https://example.com/other"},
	}

	out := Dedupe(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].Title != "first" || out[0].SourceID != "a" {
		t.Fatalf("first occurrence should win, got %+v", out[0])
	}
	if out[1].Title != "third" {
		t.Fatalf("unexpected second item: %+v", out[1])
	}
}

func TestDedupeIsIdempotent(t *testing.T) {
	items := []domain.CandidateItem{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "a2", URL: "https://example.com/a/"},
		{Title: "b", URL: "https://example.com/b"},
	}

	once := Dedupe(items)
	twice := Dedupe(once)
	if len(once) != len(twice) {
		t.Fatalf("dedupe not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].URL != twice[i].URL {
			t.Fatalf("order changed on second pass at %d", i)
		}
	}
}
