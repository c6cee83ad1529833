package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportService coordinates one import run:
// delete prior window -> fetch -> extract -> categorize -> store -> summarize.
//
// Re-running an import for the same sender and window is idempotent: prior
// records in the window are deleted before new ones are inserted. Overlapping
// runs for the same (sender, window) are not serialized here; callers must
// serialize them per key themselves.
type ImportService struct {
	source      MessageSource
	extractor   FieldExtractor
	categorizer *Categorizer
	repo        ExpenseRepository
	logger      *zap.Logger
}

// NewImportService creates a new import service.
func NewImportService(
	source MessageSource,
	extractor FieldExtractor,
	categorizer *Categorizer,
	repo ExpenseRepository,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		source:      source,
		extractor:   extractor,
		categorizer: categorizer,
		repo:        repo,
		logger:      logger,
	}
}

// Run imports all expense emails from sender for the given month. Only
// authentication and pre-step failures abort the run; per-item failures are
// counted in the summary and the affected items dropped.
func (s *ImportService) Run(ctx context.Context, sender string, month time.Month, year int) (*ImportSummary, error) {
	summary := &ImportSummary{RunID: uuid.NewString()}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	logger := s.logger.With(
		zap.String("run_id", summary.RunID),
		zap.String("sender", sender),
		zap.Time("window_start", start))

	// Delete-then-insert keeps repeated imports from accumulating duplicates.
	// A delete failure aborts: inserting on top of stale rows would break that
	// guarantee.
	deleted, err := s.repo.DeleteByDateRange(ctx, start, end, sender)
	if err != nil {
		return nil, fmt.Errorf("delete prior window: %w", err)
	}
	summary.Deleted = deleted
	if deleted > 0 {
		logger.Info("Deleted previously imported records", zap.Int("deleted", deleted))
	}

	ids, err := s.source.Search(ctx, sender, start, end)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	summary.Processed = len(ids)
	logger.Info("Found candidate messages", zap.Int("count", len(ids)))

	var expenses []ExtractedExpense
	for _, result := range s.source.FetchBodies(ctx, ids) {
		if result.Err != nil {
			summary.Errors++
			continue
		}
		expense, err := s.extractor.Extract(result.Msg)
		if err != nil {
			logger.Debug("Message is not an expense email",
				zap.String("message_id", result.Msg.ID),
				zap.Error(err))
			summary.Errors++
			continue
		}
		expenses = append(expenses, *expense)
	}
	summary.Extracted = len(expenses)

	reqs := make([]CategorizationRequest, len(expenses))
	for i := range expenses {
		reqs[i] = expenses[i].Request()
	}
	categories := s.categorizer.CategorizeMany(ctx, reqs)
	summary.Categorized = len(categories)

	records := make([]CategorizedExpense, len(expenses))
	for i := range expenses {
		records[i] = CategorizedExpense{
			ExtractedExpense: expenses[i],
			Category:         categories[i],
			OwnerKey:         sender,
		}
	}

	summary.Stored = s.storeBatch(ctx, records, summary, logger)

	logger.Info("Import complete",
		zap.Int("processed", summary.Processed),
		zap.Int("extracted", summary.Extracted),
		zap.Int("stored", summary.Stored),
		zap.Int("deleted", summary.Deleted),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// storeBatch bulk-inserts, and on bulk failure retries record by record so one
// bad row does not discard the batch.
func (s *ImportService) storeBatch(ctx context.Context, records []CategorizedExpense, summary *ImportSummary, logger *zap.Logger) int {
	if len(records) == 0 {
		return 0
	}
	stored, err := s.repo.CreateMany(ctx, records)
	if err == nil {
		return stored
	}

	logger.Warn("Bulk insert failed, retrying records individually", zap.Error(err))
	stored = 0
	for _, record := range records {
		if err := s.repo.Create(ctx, record); err != nil {
			logger.Warn("Failed to store record",
				zap.String("merchant", record.Merchant),
				zap.Error(err))
			summary.Errors++
			continue
		}
		stored++
	}
	return stored
}
