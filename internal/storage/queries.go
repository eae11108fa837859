package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	ID           int64
	Date         string
	DateUnix     int64
	DateNanos    int64
	Amount       string
	Type         string
	Category     string
	Account      string
	Description  string
	CreatedAt    string
}

const transactionColumns = `id, date, date_unix, date_nanos, amount, type, category, account, description, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransactionRow(s rowScanner) (TransactionRow, error) {
	var r TransactionRow
	err := s.Scan(
		&r.ID,
		&r.Date,
		&r.DateUnix,
		&r.DateNanos,
		&r.Amount,
		&r.Type,
		&r.Category,
		&r.Account,
		&r.Description,
		&r.CreatedAt,
	)
	return r, err
}

const createTransaction = `INSERT INTO transactions (
    date, date_unix, date_nanos, amount, type, category, account, description, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Date         string
	DateUnix     int64
	DateNanos    int64
	Amount       string
	Type         string
	Category     string
	Account      string
	Description  string
	CreatedAt    string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Date,
		arg.DateUnix,
		arg.DateNanos,
		arg.Amount,
		arg.Type,
		arg.Category,
		arg.Account,
		arg.Description,
		arg.CreatedAt,
	)
	return scanTransactionRow(row)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	return scanTransactionRow(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions
ORDER BY date_unix DESC, date_nanos DESC, id DESC`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	return q.queryRows(ctx, listTransactions)
}

const listTransactionsByRange = `SELECT ` + transactionColumns + ` FROM transactions
WHERE (date_unix, date_nanos) >= (?, ?) AND (date_unix, date_nanos) <= (?, ?)
ORDER BY date_unix DESC, date_nanos DESC, id DESC`

// DateKey orders transactions by instant. Seconds and the nanosecond
// remainder are kept apart so dates outside the int64 nanosecond range
// still compare correctly.
type DateKey struct {
	Unix  int64
	Nanos int64
}

func (q *Queries) ListTransactionsByRange(ctx context.Context, from, to DateKey) ([]TransactionRow, error) {
	return q.queryRows(ctx, listTransactionsByRange, from.Unix, from.Nanos, to.Unix, to.Nanos)
}

const getLatestTransaction = `SELECT ` + transactionColumns + ` FROM transactions
ORDER BY date_unix DESC, date_nanos DESC, id DESC
LIMIT 1`

func (q *Queries) GetLatestTransaction(ctx context.Context) (TransactionRow, error) {
	return scanTransactionRow(q.db.QueryRowContext(ctx, getLatestTransaction))
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}

func (q *Queries) queryRows(ctx context.Context, query string, args ...interface{}) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		r, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
