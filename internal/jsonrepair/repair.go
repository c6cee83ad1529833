// Package jsonrepair recovers best-effort values from JSON-like text produced
// by generative models. Strategies are ordered, independently testable string
// transforms; a strict parse is attempted after each one.
package jsonrepair

import (
	"encoding/json"
	"regexp"

	"go.uber.org/zap"
)

// Result carries the parsed value plus diagnostic lengths for logging.
type Result struct {
	Value       any
	OK          bool
	Strategy    string
	OriginalLen int
	CleanedLen  int
}

// Engine applies repair strategies in order, stopping at the first success.
type Engine struct {
	logger     *zap.Logger
	strategies []strategy
}

type strategy struct {
	name  string
	apply func(string) string
}

// New creates an engine with the default strategy pipeline.
func New(logger *zap.Logger) *Engine {
	return &Engine{
		logger: logger,
		strategies: []strategy{
			{"strip_code_fences", stripCodeFences},
			{"strip_control_chars", stripControlChars},
			{"rejoin_doubled_quotes", rejoinDoubledQuotes},
			{"normalize_quotes", normalizeQuotes},
			{"quote_bareword_keys", quoteBarewordKeys},
			{"remove_trailing_commas", removeTrailingCommas},
		},
	}
}

// Parse attempts to recover a value from text. It never panics; the returned
// Result reports success and which strategy produced the parseable form.
func (e *Engine) Parse(text string) Result {
	res := Result{OriginalLen: len(text), CleanedLen: len(text)}

	var value any
	if json.Unmarshal([]byte(text), &value) == nil {
		res.Value = value
		res.OK = true
		res.Strategy = "direct"
		return res
	}

	cleaned := text
	for _, s := range e.strategies {
		cleaned = s.apply(cleaned)
		if json.Unmarshal([]byte(cleaned), &value) == nil {
			res.Value = value
			res.OK = true
			res.Strategy = s.name
			res.CleanedLen = len(cleaned)
			e.debug(res)
			return res
		}
	}
	res.CleanedLen = len(cleaned)

	// Last resort: pull out the first balanced top-level array or object and
	// parse just that span, trimming an incomplete tail if needed.
	if span, ok := extractSpan(cleaned); ok {
		if json.Unmarshal([]byte(span), &value) == nil {
			res.Value = value
			res.OK = true
			res.Strategy = "extract_span"
			e.debug(res)
			return res
		}
		if trimmed, ok := trimIncompleteTail(span); ok {
			if json.Unmarshal([]byte(trimmed), &value) == nil {
				res.Value = value
				res.OK = true
				res.Strategy = "trim_incomplete_tail"
				e.debug(res)
				return res
			}
		}
	}

	if e.logger != nil {
		e.logger.Debug("JSON repair failed",
			zap.Int("original_len", res.OriginalLen),
			zap.Int("cleaned_len", res.CleanedLen))
	}
	return res
}

func (e *Engine) debug(res Result) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("Repaired malformed JSON",
		zap.String("strategy", res.Strategy),
		zap.Int("original_len", res.OriginalLen),
		zap.Int("cleaned_len", res.CleanedLen))
}

var categoryScrapeRe = regexp.MustCompile(`"category"\s*:\s*"([^"]*)"`)

// ScrapeCategories recovers "category" field values by regex when structural
// repair has failed, so a batch is not discarded wholesale.
func ScrapeCategories(text string) []string {
	matches := categoryScrapeRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
