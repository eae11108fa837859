package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

var ErrInvalidPeriod = errors.New("invalid period")

// TransactionService applies the business rules around recording,
// querying and summarizing transactions.
type TransactionService struct {
	store     ports.TransactionStore
	provider  ports.Provider
	publisher ports.EventPublisher
	logger    *log.Logger
}

type Option func(*TransactionService)

// WithPublisher enables event publication after writes.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransactionService) { s.logger = l.WithComponent(log.ComponentTransaction) }
}

func NewTransactionService(store ports.TransactionStore, provider ports.Provider, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:    store,
		provider: provider,
		logger:   log.ForComponent(log.ComponentTransaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTransaction validates t, stamps its creation time and stores it.
func (s *TransactionService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Transaction rejected",
			log.NewFields().Operation(log.OpValidate).Transaction(t).Err(err).Args()...)
		return core.Transaction{}, err
	}
	t.CreatedAt = s.provider.Now()

	saved, err := s.store.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().Operation(log.OpCreate).Transaction(saved).Args()...)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, saved); err != nil {
			// The write already succeeded; export catches up later.
			s.logger.ErrorContext(ctx, "Failed to publish created event",
				log.FieldTransactionID, saved.ID, log.FieldError, err)
		}
	}
	return saved, nil
}

// DeleteTransaction removes the transaction with the given id. It reports
// false when no such transaction exists.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	if _, ok, err := s.store.FindByID(ctx, id); err != nil {
		return false, fmt.Errorf("find transaction: %w", err)
	} else if !ok {
		return false, nil
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	if !deleted {
		return false, nil
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldTransactionID, id)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDeleted(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish deleted event",
				log.FieldTransactionID, id, log.FieldError, err)
		}
	}
	return true, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return nonNil(txs), nil
}

// ListTransactionsInRange returns the transactions dated on any calendar day
// from start's day through end's day.
func (s *TransactionService) ListTransactionsInRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	from, to := core.DayWindow(start, end)
	txs, err := s.store.ListByRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	return nonNil(txs), nil
}

// SearchTransactions lists transactions matching keyword; an empty keyword
// matches everything.
func (s *TransactionService) SearchTransactions(ctx context.Context, keyword string) ([]core.Transaction, error) {
	all, err := s.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if t.Matches(keyword) {
			out = append(out, t)
		}
	}
	s.logger.DebugContext(ctx, "Transactions searched",
		log.FieldOperation, log.OpSearch, "keyword", keyword, "matches", len(out))
	return out, nil
}

// CategorySummary sums expense amounts per category over the day window.
func (s *TransactionService) CategorySummary(ctx context.Context, start, end time.Time) (core.CategorySummary, error) {
	txs, err := s.ListTransactionsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return core.SummarizeCategories(txs), nil
}

// CalculateWithTax returns amount increased by the region's tax rate.
func (s *TransactionService) CalculateWithTax(amount decimal.Decimal, region string) decimal.Decimal {
	rate := s.provider.TaxRate(region)
	return amount.Add(amount.Mul(rate))
}

func (s *TransactionService) GetLastTransaction(ctx context.Context) (core.Transaction, bool, error) {
	t, ok, err := s.store.Latest(ctx)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get last transaction: %w", err)
	}
	return t, ok, nil
}

// CheckDuplicate compares candidate against the most recent transaction.
// The candidate is not validated.
func (s *TransactionService) CheckDuplicate(ctx context.Context, candidate core.Transaction) (bool, error) {
	last, ok, err := s.GetLastTransaction(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return s.provider.IsPotentialDuplicate(candidate, last), nil
}

// MonthOverview returns totals and the expense breakdown for one month.
func (s *TransactionService) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	from, to := core.MonthWindow(year, month, s.location())
	txs, err := s.store.ListByRange(ctx, from, to)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list month transactions: %w", err)
	}
	return core.MonthOverview{
		Year:       year,
		Month:      month,
		Totals:     core.SumTotals(txs),
		ByCategory: core.SummarizeCategories(txs),
	}, nil
}

// YearlySummary returns totals for the year and per month. The current
// year stops at the current month; other years cover all twelve.
func (s *TransactionService) YearlySummary(ctx context.Context, year int) (core.YearlySummary, error) {
	if year < 1 {
		return core.YearlySummary{}, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	now := s.provider.Now()
	lastMonth := 12
	if year == now.Year() {
		lastMonth = int(now.Month())
	}

	from, to := core.YearWindow(year, s.location())
	if lastMonth < 12 {
		_, to = core.MonthWindow(year, lastMonth, s.location())
	}
	txs, err := s.store.ListByRange(ctx, from, to)
	if err != nil {
		return core.YearlySummary{}, fmt.Errorf("list year transactions: %w", err)
	}

	s.logger.DebugContext(ctx, "Yearly summary computed",
		log.FieldOperation, log.OpSummary, log.FieldYear, year, "transactions", len(txs))

	return core.YearlySummary{
		Year:   year,
		Totals: core.SumTotals(txs),
		Months: core.SummarizeMonths(year, lastMonth, txs),
	}, nil
}

// ExchangeRate returns how many units of to one unit of from buys.
func (s *TransactionService) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	rate, err := s.provider.ExchangeRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange rate %s/%s: %w", from, to, err)
	}
	return rate, nil
}

// Now returns the current time of the service's clock.
func (s *TransactionService) Now() time.Time {
	return s.provider.Now()
}

func (s *TransactionService) location() *time.Location {
	return s.Now().Location()
}

func nonNil(txs []core.Transaction) []core.Transaction {
	if txs == nil {
		return []core.Transaction{}
	}
	return txs
}
