package selector

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyFirst = regexp.MustCompile(`(?:₺|\$|€|£|\b(?:TL|TRY|USD|EUR|GBP))\s?(\d[\d.,]*\d|\d)`)
	amountFirst   = regexp.MustCompile(`(\d[\d.,]*\d|\d)\s?(?:₺|\$|€|£|(?:TL|TRY|USD|EUR|GBP)(?:[^\p{L}]|$))`)

	// structured results keep the currency in a field of its own
	keyedAmount     = regexp.MustCompile(`(?i)\b(?:price|amount|total|fare|cost)(?:_\w+)?\s*[:=]?\s*(?:(?:amount|value|total)\s*[:=]?\s*)?(\d[\d.,]*\d|\d)`)
	currencyMention = regexp.MustCompile(`₺|\$|€|£|\b(?:TL|TRY|USD|EUR|GBP)\b|(?i:\bcurrency\b)`)
)

// Price reads the first amount tagged with a currency in text, or else the
// amount under a price-like key when the text names a currency elsewhere.
func Price(text string) (float64, bool) {
	var match []int
	for _, re := range []*regexp.Regexp{amountFirst, currencyFirst} {
		m := re.FindStringSubmatchIndex(text)
		if m != nil && (match == nil || m[0] < match[0]) {
			match = m
		}
	}
	if match == nil {
		if !currencyMention.MatchString(text) {
			return 0, false
		}
		if match = keyedAmount.FindStringSubmatchIndex(text); match == nil {
			return 0, false
		}
	}
	return parseAmount(text[match[2]:match[3]])
}

// parseAmount accepts both 1.450,50 and 1,450.50 styles. A single separator
// followed by exactly three digits is a thousands separator.
func parseAmount(s string) (float64, bool) {
	last := strings.LastIndexAny(s, ".,")
	if last < 0 {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}
	var clean string
	if len(s)-last-1 == 3 {
		clean = strings.NewReplacer(".", "", ",", "").Replace(s)
	} else {
		clean = strings.NewReplacer(".", "", ",", "").Replace(s[:last]) + "." + s[last+1:]
	}
	v, err := strconv.ParseFloat(clean, 64)
	return v, err == nil
}
