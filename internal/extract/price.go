package extract

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/cardscout-hq/cardscout-harvester/internal/domain"
)

var (
	numberRe = regexp.MustCompile(`\d[\d,]*\.?\d*`)
	// Symbol-before ("¥12,345") and amount-before ("12345 JPY") forms.
	priceRe = regexp.MustCompile(`(?i)(£|€|\$|¥|円|&yen;|JPY|USD|EUR|GBP)\s*([\d,]+(?:\.\d{1,2})?)|([\d,]+(?:\.\d{1,2})?)\s*(円|JPY|USD|EUR|GBP)`)
)

var symbolCurrencies = map[string]string{
	"£": "GBP", "€": "EUR", "$": "USD", "¥": "JPY", "円": "JPY", "&YEN;": "JPY",
}

// NormalizeText unescapes HTML entities and collapses whitespace runs.
func NormalizeText(value string) string {
	unescaped := strings.ReplaceAll(html.UnescapeString(value), " ", " ")
	return strings.Join(strings.Fields(unescaped), " ")
}

// ExtractNumber pulls the first numeric token out of raw.
func ExtractNumber(raw string) (float64, bool) {
	match := numberRe.FindString(raw)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// InferCurrency guesses the ISO currency code from a localized price string.
// Empty means no recognizable currency marker.
func InferCurrency(raw string) string {
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(raw, "$") || strings.Contains(low, "usd"):
		return "USD"
	case strings.Contains(raw, "£") || strings.Contains(low, "gbp"):
		return "GBP"
	case strings.Contains(raw, "€") || strings.Contains(low, "eur"):
		return "EUR"
	case strings.Contains(raw, "¥") || strings.Contains(raw, "円") || strings.Contains(low, "jpy"):
		return "JPY"
	}
	return ""
}

// ParsePrice normalizes a localized price string into amount + ISO currency.
// Unparsable input returns nil; absence is representable downstream and must
// never fail an item.
func ParsePrice(raw string) *domain.Price {
	raw = NormalizeText(raw)
	if raw == "" {
		return nil
	}
	amount, ok := ExtractNumber(raw)
	if !ok || amount < 0 {
		return nil
	}
	return &domain.Price{Amount: amount, Currency: InferCurrency(raw)}
}

// findPriceIn scans free-form markup text for the first price-looking token.
func findPriceIn(text string) *domain.Price {
	groups := priceRe.FindStringSubmatch(text)
	if groups == nil {
		return nil
	}

	var symbol, amountRaw string
	if groups[1] != "" && groups[2] != "" {
		symbol, amountRaw = strings.ToUpper(groups[1]), groups[2]
	} else {
		symbol, amountRaw = strings.ToUpper(groups[4]), groups[3]
	}

	amount, ok := ExtractNumber(amountRaw)
	if !ok {
		return nil
	}
	currency := symbolCurrencies[symbol]
	if currency == "" {
		currency = symbol
	}
	return &domain.Price{Amount: amount, Currency: currency}
}
