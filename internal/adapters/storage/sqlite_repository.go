package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finwatch/expense-importer/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteRepository is a SQLite implementation of core.ExpenseRepository.
type SQLiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteRepository opens (or creates) the database and its schema.
func NewSQLiteRepository(dbPath string, logger *zap.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_key TEXT NOT NULL,
			merchant TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			category TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			imported_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on the delete-window predicate.
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expenses_owner_occurred ON expenses(owner_key, occurred_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

// CreateMany inserts all records in one transaction and returns the count.
func (r *SQLiteRepository) CreateMany(ctx context.Context, records []core.CategorizedExpense) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, insertArgs(rec, now)...); err != nil {
			return 0, fmt.Errorf("failed to insert record for %q: %w", rec.Merchant, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	r.logger.Debug("Bulk-inserted expenses", zap.Int("count", len(records)))
	return len(records), nil
}

// Create inserts a single record.
func (r *SQLiteRepository) Create(ctx context.Context, record core.CategorizedExpense) error {
	if _, err := r.db.ExecContext(ctx, insertSQL, insertArgs(record, time.Now().UTC())...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// DeleteByDateRange removes records for ownerKey with occurred_at in [start, end).
func (r *SQLiteRepository) DeleteByDateRange(ctx context.Context, start, end time.Time, ownerKey string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM expenses
		WHERE owner_key = ? AND occurred_at >= ? AND occurred_at < ?
	`, ownerKey, start.UTC(), end.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete window: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return int(rows), nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const insertSQL = `
	INSERT INTO expenses (owner_key, merchant, amount, currency, category, occurred_at, location, imported_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func insertArgs(rec core.CategorizedExpense, now time.Time) []any {
	return []any{
		rec.OwnerKey,
		rec.Merchant,
		rec.Amount.String(),
		rec.Currency,
		string(rec.Category),
		rec.OccurredAt.UTC(),
		rec.Location,
		now,
	}
}
