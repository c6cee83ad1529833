package extract

import (
	"regexp"
	"strings"
	"time"
)

// Field patterns are ordered: explicit labeled lines win over sentence forms,
// which win over heuristics.

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*(?:merchant|payee|vendor|commerce|paid to)[ \t]*:[ \t]*(.+?)[ \t]*$`),
	regexp.MustCompile(`(?i)(?:purchase|payment|transaction|charge)[^.\n]*?\b(?:at|to|from)[ \t]+([A-Za-z0-9][A-Za-z0-9 &.'\-]*?)[ \t]+(?:on|for|of|was|in)\b`),
	regexp.MustCompile(`\b(?:at|to|from)[ \t]+([A-Z][A-Z0-9 &.'\-]{2,50})`),
}

var amountPatterns = []*regexp.Regexp{
	// Labeled amount, optional currency code or symbol.
	regexp.MustCompile(`(?i)(?:amount|total|charged?)[ \t]*:?[ \t]*(?:([A-Z]{3})[ \t]*)?[$€£]?[ \t]*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
	// Currency code followed by number anywhere in the body.
	regexp.MustCompile(`\b([A-Z]{3})[ \t]+([0-9][0-9,]*(?:\.[0-9]{1,2})?)\b`),
	// Bare symbol-prefixed number.
	regexp.MustCompile(`([$€£])[ \t]*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*(?:date|transaction date|when)[ \t]*:[ \t]*(.+?)[ \t]*$`),
	regexp.MustCompile(`(?i)\bon[ \t]+([A-Z][a-z]+[ \t][0-9]{1,2},?[ \t][0-9]{4})`),
	regexp.MustCompile(`\b([0-9]{4}-[0-9]{2}-[0-9]{2})\b`),
	regexp.MustCompile(`\b([0-9]{1,2}/[0-9]{1,2}/[0-9]{4})\b`),
}

var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	time.RFC1123Z,
	time.RFC1123,
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*(?:location|place|city|where)[ \t]*:[ \t]*(.+?)[ \t]*$`),
	regexp.MustCompile(`\bin[ \t]+([A-Z][a-zA-Z]+(?:[ \t][A-Z][a-zA-Z]+)*,[ \t]*[A-Z]{2})\b`),
}

var symbolCurrencies = map[string]string{
	"€": "EUR",
	"£": "GBP",
}

func matchMerchant(body string) string {
	for _, re := range merchantPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.Trim(strings.TrimSpace(m[1]), ".,;:")
		}
	}
	return ""
}

// matchAmount returns the numeric token and, when the body names one, the
// 3-letter currency code. The dollar symbol is ambiguous across locales and
// maps to the configured default instead.
func matchAmount(body string) (amount, currency string) {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if cur, ok := symbolCurrencies[m[1]]; ok {
			return m[2], cur
		}
		if len(m[1]) == 3 {
			return m[2], m[1]
		}
		return m[2], ""
	}
	return "", ""
}

func matchDate(body string) (time.Time, bool) {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func matchLocation(body string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
