package sources

// NinNinGameSite describes the Nin-Nin-Game storefront. Broad catalog of
// Japan exclusives with established UK shipping methods.
func NinNinGameSite() Site {
	return Site{
		ID:              "ninningame",
		Name:            "Nin-Nin-Game",
		Country:         "Japan",
		HomeURL:         "https://www.nin-nin-game.com/en/",
		SearchURL:       "https://www.nin-nin-game.com/en/search?controller=search&search_query=%s",
		Queries:         []string{"pokemon card", "one piece card game", "yugioh", "digimon card"},
		SitemapIncludes: []string{"/en/", "/product"},
		SitemapExcludes: []string{"/blog", "/news", "/content/", "/search", "/module/"},
		ExtraCardTerms:  []string{"digimon"},
		Required:        true,
		Fallback: []FallbackItem{
			{Title: "Pokemon Card Game Booster Box", URL: "https://www.nin-nin-game.com/en/search?controller=search&search_query=pokemon+card+booster+box", Amount: 47.0, Currency: "GBP"},
			{Title: "One Piece Card Game Booster Box", URL: "https://www.nin-nin-game.com/en/search?controller=search&search_query=one+piece+card+game+booster+box", Amount: 55.0, Currency: "GBP"},
			{Title: "Yu-Gi-Oh OCG Pack", URL: "https://www.nin-nin-game.com/en/search?controller=search&search_query=yugioh+ocg", Amount: 21.0, Currency: "GBP"},
			{Title: "Digimon Card Game Starter Deck", URL: "https://www.nin-nin-game.com/en/search?controller=search&search_query=digimon+card+starter+deck", Amount: 19.0, Currency: "GBP"},
		},
	}
}
