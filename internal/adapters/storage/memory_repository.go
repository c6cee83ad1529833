package storage

import (
	"context"
	"sync"
	"time"

	"github.com/finwatch/expense-importer/internal/core"
	"go.uber.org/zap"
)

// MemoryRepository is an in-memory implementation of core.ExpenseRepository,
// used for tests and dry runs.
type MemoryRepository struct {
	mu      sync.Mutex
	records []core.CategorizedExpense
	logger  *zap.Logger
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(logger *zap.Logger) *MemoryRepository {
	return &MemoryRepository{logger: logger}
}

// CreateMany appends all records and returns the count.
func (r *MemoryRepository) CreateMany(_ context.Context, records []core.CategorizedExpense) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return len(records), nil
}

// Create appends a single record.
func (r *MemoryRepository) Create(_ context.Context, record core.CategorizedExpense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// DeleteByDateRange removes records for ownerKey with OccurredAt in [start, end).
func (r *MemoryRepository) DeleteByDateRange(_ context.Context, start, end time.Time, ownerKey string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	deleted := 0
	for _, rec := range r.records {
		inWindow := rec.OwnerKey == ownerKey &&
			!rec.OccurredAt.Before(start) && rec.OccurredAt.Before(end)
		if inWindow {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

// All returns a copy of the stored records.
func (r *MemoryRepository) All() []core.CategorizedExpense {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.CategorizedExpense, len(r.records))
	copy(out, r.records)
	return out
}
