package extract

import (
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// decodeBase64URL decodes a base64url payload, tolerating both padded and
// unpadded forms as well as standard-alphabet input.
func decodeBase64URL(data string) (string, error) {
	trimmed := strings.TrimRight(data, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return string(b), nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil {
		return string(b), nil
	}
	return "", fmt.Errorf("payload is not valid base64url")
}

var charsetRe = regexp.MustCompile(`(?i)charset=["']?([A-Za-z0-9_\-]+)`)

// decodeCharset converts a body declared in a non-UTF-8 charset (via a meta
// tag or content-type attribute inside the body) to UTF-8. Unknown charsets
// and decode failures leave the input unchanged.
func decodeCharset(body string) string {
	m := charsetRe.FindStringSubmatch(body)
	if m == nil {
		return body
	}
	name := strings.ToLower(m[1])
	if name == "utf-8" || name == "utf8" || name == "us-ascii" {
		return body
	}
	if utf8.ValidString(body) {
		return body
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return body
	}
	decoded, err := enc.NewDecoder().String(body)
	if err != nil {
		return body
	}
	return decoded
}

var (
	styleScriptRe = regexp.MustCompile(`(?is)<(?:style|script)[^>]*>.*?</(?:style|script)>`)
	blockBreakRe  = regexp.MustCompile(`(?i)<(?:br[ \t]*/?|/p|/div|/tr|/li|/h[1-6]|/table)>`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
	blankLineRe   = regexp.MustCompile(`\n{3,}`)
)

// htmlToText reduces an HTML body to line-oriented plain text so the field
// patterns can anchor on label lines.
func htmlToText(s string) string {
	out := styleScriptRe.ReplaceAllString(s, " ")
	out = blockBreakRe.ReplaceAllString(out, "\n")
	out = tagRe.ReplaceAllString(out, " ")
	out = html.UnescapeString(out)
	out = spaceRunRe.ReplaceAllString(out, " ")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLineRe.ReplaceAllString(out, "\n\n"))
}
