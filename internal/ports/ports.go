package ports

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// ErrNotExported is reported by exporters asked to remove a transaction
// they never wrote.
var ErrNotExported = errors.New("transaction not exported")

// ErrExportRejected marks exporter failures the ledger will keep refusing,
// such as a bad request or a missing sheet.
var ErrExportRejected = errors.New("export rejected")

// Ports for outbound adapters.
type (
	// TransactionStore persists transactions. List methods return results
	// ordered by date, most recent first.
	TransactionStore interface {
		Insert(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Delete(ctx context.Context, id int64) (bool, error)
		FindByID(ctx context.Context, id int64) (core.Transaction, bool, error)
		ListAll(ctx context.Context) ([]core.Transaction, error)
		// ListByRange returns transactions dated within [from, to], both inclusive.
		ListByRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
		// Latest returns the transaction with the greatest date.
		Latest(ctx context.Context) (core.Transaction, bool, error)
	}

	// Provider supplies server time, tax rates, duplicate scoring and
	// exchange rates.
	Provider interface {
		Now() time.Time
		TaxRate(region string) decimal.Decimal
		IsPotentialDuplicate(candidate, reference core.Transaction) bool
		ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error)
	}

	EventPublisher interface {
		PublishTransactionCreated(ctx context.Context, t core.Transaction) error
		PublishTransactionDeleted(ctx context.Context, id int64) error
	}

	// TransactionExporter mirrors transactions to an external ledger.
	TransactionExporter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
		DeleteTransaction(ctx context.Context, id int64) error
	}
)
