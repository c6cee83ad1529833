package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestTruncate(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	if got := tp.Truncate("short", 100); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	if got := tp.Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate = %q, want abc", got)
	}
	if got := tp.Truncate("abcdef", 0); got != "abcdef" {
		t.Errorf("Truncate with zero cap = %q, want input unchanged", got)
	}

	// Never split a multi-byte rune.
	got := tp.Truncate("a€b", 2)
	if !utf8.ValidString(got) {
		t.Errorf("Truncate produced invalid UTF-8: %q", got)
	}
	if got != "a" {
		t.Errorf("Truncate = %q, want a", got)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	clean := "Merchant: SHELL €45.67"
	if got := tp.SanitizeUTF8(clean); got != clean {
		t.Errorf("valid input changed: %q", got)
	}

	dirty := "SHELL\xff\xfe STATION"
	got := tp.SanitizeUTF8(dirty)
	if !utf8.ValidString(got) {
		t.Errorf("output still invalid: %q", got)
	}
	if !strings.Contains(got, "SHELL") || !strings.Contains(got, "STATION") {
		t.Errorf("valid content lost: %q", got)
	}
}

func TestPromptField(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.PromptField("SHELL \"GAS\"\nSTATION", 100)
	if strings.ContainsAny(got, "\"\n") {
		t.Errorf("quotes or newlines survived: %q", got)
	}
	if got != "SHELL 'GAS' STATION" {
		t.Errorf("PromptField = %q", got)
	}

	long := strings.Repeat("x", 200)
	if got := tp.PromptField(long, 50); len(got) > 50 {
		t.Errorf("len = %d, want <= 50", len(got))
	}
}
