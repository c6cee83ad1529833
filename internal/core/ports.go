package core

import (
	"context"
	"time"
)

// FetchResult is the outcome of fetching one message body. Exactly one of
// Msg and Err is set.
type FetchResult struct {
	Msg *RawMessage
	Err error
}

// MessageSource retrieves candidate messages for a sender across a date window.
type MessageSource interface {
	// Search returns the ids of all messages from sender within [start, end),
	// following pagination until exhausted.
	Search(ctx context.Context, sender string, start, end time.Time) ([]string, error)

	// FetchBodies fetches full message bodies for the given ids in rate-limited
	// batches. The result slice has the same length and order as ids.
	FetchBodies(ctx context.Context, ids []string) []FetchResult
}

// FieldExtractor parses a message body into a raw expense record.
type FieldExtractor interface {
	// Extract returns an error when the message is not an expense email or
	// fails validation.
	Extract(msg *RawMessage) (*ExtractedExpense, error)
}

// TextGenerator invokes an external text-generation model and returns its raw
// response text, which is expected (but not guaranteed) to be JSON.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// ExpenseRepository is the storage collaborator for categorized expenses.
type ExpenseRepository interface {
	// CreateMany bulk-inserts records and returns the number persisted.
	CreateMany(ctx context.Context, records []CategorizedExpense) (int, error)

	// Create inserts a single record.
	Create(ctx context.Context, record CategorizedExpense) error

	// DeleteByDateRange removes all records for ownerKey whose OccurredAt falls
	// in [start, end) and returns the number removed.
	DeleteByDateRange(ctx context.Context, start, end time.Time, ownerKey string) (int, error)
}
