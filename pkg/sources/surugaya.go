package sources

// SurugaYaSite describes Suruga-ya, a deep catalog for Japanese trading
// cards and accessories including discounted used stock.
func SurugaYaSite() Site {
	return Site{
		ID:              "surugaya",
		Name:            "Suruga-ya",
		Country:         "Japan",
		HomeURL:         "https://www.suruga-ya.com/en",
		SearchURL:       "https://www.suruga-ya.com/en/products?keyword=%s",
		Queries:         []string{"pokemon card", "one piece card game", "yugioh", "dragon ball super card"},
		SitemapIncludes: []string{"/en/product/", "/en/detail/"},
		SitemapExcludes: []string{"/news", "/special", "/guide", "/faq"},
		ExtraCardTerms:  []string{"dragon ball"},
		Fallback: []FallbackItem{
			{Title: "Pokemon Card Japanese Booster Box", URL: "https://www.suruga-ya.com/en/products?keyword=pokemon+card+booster+box", Amount: 49.0, Currency: "GBP"},
			{Title: "Yu-Gi-Oh OCG Japanese Box", URL: "https://www.suruga-ya.com/en/products?keyword=yugioh+ocg+box", Amount: 34.0, Currency: "GBP"},
		},
	}
}
