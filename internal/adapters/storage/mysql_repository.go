package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finwatch/expense-importer/internal/core"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLRepository is a MySQL implementation of core.ExpenseRepository.
type MySQLRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLRepository connects to MySQL and ensures the schema exists.
func NewMySQLRepository(dsn string, logger *zap.Logger) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", dsn+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS expenses (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			owner_key VARCHAR(255) NOT NULL,
			merchant VARCHAR(255) NOT NULL,
			amount VARCHAR(64) NOT NULL,
			currency CHAR(3) NOT NULL,
			category VARCHAR(64) NOT NULL,
			occurred_at DATETIME NOT NULL,
			location VARCHAR(255) NOT NULL DEFAULT '',
			imported_at DATETIME NOT NULL,
			INDEX idx_expenses_owner_occurred (owner_key, occurred_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLRepository{db: db, logger: logger}, nil
}

// CreateMany inserts all records in one transaction and returns the count.
func (r *MySQLRepository) CreateMany(ctx context.Context, records []core.CategorizedExpense) (int, error) {
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
func (r *MySQLRepository) Create(ctx context.Context, record core.CategorizedExpense) error {
	if _, err := r.db.ExecContext(ctx, insertSQL, insertArgs(record, time.Now().UTC())...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// DeleteByDateRange removes records for ownerKey with occurred_at in [start, end).
func (r *MySQLRepository) DeleteByDateRange(ctx context.Context, start, end time.Time, ownerKey string) (int, error) {
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
func (r *MySQLRepository) Close() error {
	return r.db.Close()
}
