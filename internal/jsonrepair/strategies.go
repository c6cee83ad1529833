package jsonrepair

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe      = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	barewordKeyRe    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuoteRe    = regexp.MustCompile(`'([^'\\]*)'`)
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	doubledBoundRe   = regexp.MustCompile(`\\"\s*([,:])\s*\\"`)
	doubledEdgeRules = []struct{ from, to string }{
		{`{\"`, `{"`},
		{`\"}`, `"}`},
		{`[\"`, `["`},
		{`\"]`, `"]`},
	}
)

// stripCodeFences unwraps a markdown code fence around the payload.
func stripCodeFences(s string) string {
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// stripControlChars removes control characters that are illegal inside JSON
// strings, keeping newlines and tabs as plain spaces.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteByte(' ')
		case r < 0x20:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// rejoinDoubledQuotes collapses the escape doubling some models apply to an
// already-quoted payload: a value ending in an escaped quote followed by a
// separator and another escaped quote becomes two plain quoted tokens.
func rejoinDoubledQuotes(s string) string {
	if !strings.Contains(s, `\"`) {
		return s
	}
	out := doubledBoundRe.ReplaceAllString(s, `"$1"`)
	for _, r := range doubledEdgeRules {
		out = strings.ReplaceAll(out, r.from, r.to)
	}
	return out
}

// normalizeQuotes converts single-quoted tokens to double-quoted ones.
func normalizeQuotes(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}
	return singleQuoteRe.ReplaceAllString(s, `"$1"`)
}

// quoteBarewordKeys wraps unquoted object keys in double quotes.
func quoteBarewordKeys(s string) string {
	return barewordKeyRe.ReplaceAllString(s, `$1"$2":`)
}

// removeTrailingCommas drops commas that directly precede a closing bracket.
func removeTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, `$1`)
}

// extractSpan returns the first top-level [...] or {...} span. When the span
// never closes, the unbalanced tail is returned for trimIncompleteTail.
func extractSpan(s string) (string, bool) {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], true
}

// trimIncompleteTail cuts a truncated trailing element (a dangling object or
// string, or a dangling comma) off an unbalanced span and re-closes it.
func trimIncompleteTail(span string) (string, bool) {
	if len(span) < 2 {
		return "", false
	}
	var closer byte
	switch span[0] {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return "", false
	}

	depth := 0
	inStr := false
	esc := false
	lastComplete := -1
	for i := 0; i < len(span); i++ {
		ch := span[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
				if depth == 1 {
					lastComplete = i + 1
				}
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 1 {
				lastComplete = i + 1
			}
		}
	}
	if lastComplete <= 0 {
		return "", false
	}
	out := strings.TrimRight(span[:lastComplete], " \t\r\n,")
	return out + string(closer), true
}
