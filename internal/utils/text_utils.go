package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor cleans free-form text before it is pattern-matched or placed
// into a model prompt.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor.
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{logger: logger}
}

// Truncate caps text at maxSize bytes without splitting a UTF-8 sequence.
func (tp *TextProcessor) Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}
	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)))
	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PromptField prepares a value for interpolation into a JSON prompt:
// sanitized, truncated, quotes and newlines neutralized.
func (tp *TextProcessor) PromptField(text string, maxSize int) string {
	cleaned := tp.Truncate(tp.SanitizeUTF8(text), maxSize)
	cleaned = strings.ReplaceAll(cleaned, `"`, `'`)
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	return strings.TrimSpace(cleaned)
}
