package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var _ ports.TransactionStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert stores t as given, CreatedAt included. The service stamps
// CreatedAt from its provider before calling.
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	key := dateKey(t.Date)
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Date:         t.Date.Format(time.RFC3339Nano),
		DateUnix:     key.Unix,
		DateNanos:    key.Nanos,
		Amount:       t.Amount.String(),
		Type:         t.Type.String(),
		Category:     t.Category,
		Account:      t.Account,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"amount", row.Amount,
		"type", row.Type,
		"category", row.Category)

	return rowToTransaction(row)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Transaction, bool, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction %d: %w", id, err)
	}
	t, err := rowToTransaction(row)
	if err != nil {
		return core.Transaction{}, false, err
	}
	return t, true, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rowsToTransactions(rows)
}

func (r *SQLiteRepository) ListByRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByRange(ctx, dateKey(from), dateKey(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions by range: %w", err)
	}
	return rowsToTransactions(rows)
}

func (r *SQLiteRepository) Latest(ctx context.Context) (core.Transaction, bool, error) {
	row, err := r.queries.GetLatestTransaction(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get latest transaction: %w", err)
	}
	t, err := rowToTransaction(row)
	if err != nil {
		return core.Transaction{}, false, err
	}
	return t, true, nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func dateKey(t time.Time) DateKey {
	return DateKey{Unix: t.Unix(), Nanos: int64(t.Nanosecond())}
}

func rowsToTransactions(rows []TransactionRow) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func rowToTransaction(row TransactionRow) (core.Transaction, error) {
	date, err := time.Parse(time.RFC3339Nano, row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of transaction %d: %w", row.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at of transaction %d: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount of transaction %d: %w", row.ID, err)
	}
	typ, err := core.ParseTransactionType(row.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        date,
		Amount:      amount,
		Type:        typ,
		Category:    row.Category,
		Account:     row.Account,
		Description: row.Description,
		CreatedAt:   createdAt,
	}, nil
}
