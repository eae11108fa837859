package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const maxDescriptionLen = 200

type (
	TransactionType string

	Transaction struct {
		ID          int64
		Date        time.Time
		Amount      decimal.Decimal
		Type        TransactionType
		Category    string
		Account     string // Payment method or account label
		Description string
		CreatedAt   time.Time // Stamped by the provider clock on insert
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyAccount       = errors.New("empty account")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// ParseTransactionType maps user input onto one of the recognized types.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// IsValid reports whether t is income or expense.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (tx Transaction) Validate() error {
	// Years past 9999 have no RFC3339 form.
	if tx.Date.IsZero() || tx.Date.Year() > 9999 {
		return ErrInvalidDate
	}
	if !tx.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !tx.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(tx.Account) == "" {
		return ErrEmptyAccount
	}
	if utf8.RuneCountInString(tx.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Matches reports whether keyword occurs, case-insensitively, in the
// category, account, description, type or amount of the transaction.
// A blank keyword matches every transaction.
func (tx Transaction) Matches(keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}
	fields := []string{
		tx.Category,
		tx.Account,
		tx.Description,
		string(tx.Type),
		tx.Amount.String(),
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), keyword) {
			return true
		}
	}
	return false
}

// DayWindow widens [start, end] to whole calendar days: from midnight of
// start's day to one nanosecond before the midnight following end's day.
// Each bound keeps its own location.
func DayWindow(start, end time.Time) (from, to time.Time) {
	from = startOfDay(start)
	to = startOfDay(end).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return from, to
}

// MonthWindow returns the day window covering the given calendar month.
func MonthWindow(year, month int, loc *time.Location) (from, to time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return DayWindow(first, last)
}

// YearWindow returns the day window covering the given calendar year.
func YearWindow(year int, loc *time.Location) (from, to time.Time) {
	return DayWindow(
		time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		time.Date(year, time.December, 31, 0, 0, 0, 0, loc),
	)
}

// SameDay compares calendar dates, ignoring time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
