package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/finwatch/expense-importer/internal/jsonrepair"
	"github.com/finwatch/expense-importer/internal/ratelimit"
	"github.com/finwatch/expense-importer/internal/utils"
	"go.uber.org/zap"
)

// maxChunkSize bounds one model call to keep prompts and responses inside
// payload/token limits.
const maxChunkSize = 10

const promptFormat = `You are an expense categorization system. Assign each expense below exactly one category from this list:
%s

Respond with a JSON array only, one element per expense, in input order:
[{"index": 0, "category": "<category>"}]

Expenses:
%s`

// Categorizer assigns categories to expense records by invoking an external
// text-generation model, recovering from malformed responses, and falling
// back to deterministic keyword rules on total failure. It never returns an
// error: every input record gets a category from the closed set.
type Categorizer struct {
	gen        TextGenerator
	repair     *jsonrepair.Engine
	fetcher    *ratelimit.Fetcher
	text       *utils.TextProcessor
	logger     *zap.Logger
	chunkSize  int
	chunkDelay time.Duration
}

// NewCategorizer creates a categorizer. chunkSize is clamped to 10.
func NewCategorizer(
	gen TextGenerator,
	repair *jsonrepair.Engine,
	fetcher *ratelimit.Fetcher,
	text *utils.TextProcessor,
	logger *zap.Logger,
	chunkSize int,
	chunkDelay time.Duration,
) *Categorizer {
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		chunkSize = maxChunkSize
	}
	return &Categorizer{
		gen:        gen,
		repair:     repair,
		fetcher:    fetcher,
		text:       text,
		logger:     logger,
		chunkSize:  chunkSize,
		chunkDelay: chunkDelay,
	}
}

// CategorizeOne classifies a single expense.
func (c *Categorizer) CategorizeOne(ctx context.Context, req CategorizationRequest) Category {
	return c.CategorizeMany(ctx, []CategorizationRequest{req})[0]
}

// CategorizeMany classifies expenses in order-preserving chunks, processed
// sequentially with a short delay between chunks. The result has the same
// length and order as reqs.
func (c *Categorizer) CategorizeMany(ctx context.Context, reqs []CategorizationRequest) []Category {
	out := make([]Category, 0, len(reqs))
	for start := 0; start < len(reqs); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(reqs) {
			end = len(reqs)
		}
		if start > 0 && c.chunkDelay > 0 {
			select {
			case <-time.After(c.chunkDelay):
			case <-ctx.Done():
			}
		}
		out = append(out, c.categorizeChunk(ctx, reqs[start:end])...)
	}
	return out
}

func (c *Categorizer) categorizeChunk(ctx context.Context, chunk []CategorizationRequest) []Category {
	prompt := c.buildPrompt(chunk)

	var raw string
	err := c.fetcher.Do(ctx, func(ctx context.Context) error {
		var genErr error
		raw, genErr = c.gen.GenerateJSON(ctx, prompt)
		return genErr
	})
	if err != nil {
		c.logger.Warn("Model call failed, using keyword fallback",
			zap.Int("chunk_size", len(chunk)),
			zap.Error(err))
		return c.fallbackAll(chunk)
	}

	labels, ok := c.parseLabels(raw, len(chunk))
	if !ok {
		c.logger.Warn("Unrecoverable model response, using keyword fallback",
			zap.Int("response_len", len(raw)))
		return c.fallbackAll(chunk)
	}

	cats := make([]Category, len(chunk))
	for i := range chunk {
		if i >= len(labels) || labels[i] == "" {
			cats[i] = FallbackCategory(chunk[i].Merchant)
			continue
		}
		cat, member := ParseCategory(labels[i])
		if !member {
			c.logger.Warn("Model returned label outside the category set",
				zap.String("label", labels[i]),
				zap.String("merchant", chunk[i].Merchant))
			cat = CategoryOther
		}
		cats[i] = cat
	}
	return cats
}

func (c *Categorizer) buildPrompt(chunk []CategorizationRequest) string {
	names := make([]string, 0, len(Categories()))
	for _, cat := range Categories() {
		names = append(names, string(cat))
	}

	var records strings.Builder
	for i, req := range chunk {
		fmt.Fprintf(&records,
			"{\"index\": %d, \"merchant\": \"%s\", \"amount\": \"%s %s\", \"location\": \"%s\", \"date\": \"%s\"}\n",
			i,
			c.text.PromptField(req.Merchant, 120),
			req.Amount.String(),
			req.Currency,
			c.text.PromptField(req.Location, 80),
			req.OccurredAt.Format("2006-01-02"))
	}
	return fmt.Sprintf(promptFormat, strings.Join(names, ", "), records.String())
}

// parseLabels runs the response through strict JSON, then the repair engine,
// then regex field scraping. Labels are positioned by explicit index when the
// response carries one.
func (c *Categorizer) parseLabels(raw string, n int) ([]string, bool) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		res := c.repair.Parse(raw)
		if res.OK {
			value = res.Value
		} else if scraped := jsonrepair.ScrapeCategories(raw); len(scraped) > 0 {
			c.logger.Warn("Recovered categories by field scraping",
				zap.Int("recovered", len(scraped)),
				zap.Int("expected", n))
			return scraped, true
		} else {
			return nil, false
		}
	}
	labels, ok := normalizeLabels(value, n)
	return labels, ok
}

// normalizeLabels accepts the response shapes models actually produce: an
// array of {index, category} objects, an array of bare strings, or an object
// wrapping either under "categories".
func normalizeLabels(value any, n int) ([]string, bool) {
	switch v := value.(type) {
	case []any:
		labels := make([]string, n)
		next := 0
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				if next < n {
					labels[next] = entry
					next++
				}
			case map[string]any:
				label, _ := entry["category"].(string)
				if label == "" {
					continue
				}
				if idx, isNum := entry["index"].(float64); isNum && int(idx) >= 0 && int(idx) < n {
					labels[int(idx)] = label
				} else if next < n {
					labels[next] = label
					next++
				}
			}
		}
		return labels, true
	case map[string]any:
		if inner, ok := v["categories"]; ok {
			return normalizeLabels(inner, n)
		}
		// Single-record shape: {"category": "X"}.
		if label, ok := v["category"].(string); ok {
			labels := make([]string, n)
			labels[0] = label
			return labels, true
		}
	}
	return nil, false
}

func (c *Categorizer) fallbackAll(chunk []CategorizationRequest) []Category {
	cats := make([]Category, len(chunk))
	for i, req := range chunk {
		cats[i] = FallbackCategory(req.Merchant)
	}
	return cats
}
