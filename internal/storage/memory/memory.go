package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

var _ ports.TransactionStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	items  []core.Transaction
	nextID int64
}

func New() *Store {
	return &Store{}
}

// seedTransaction is the on-disk shape of a seed file entry.
type seedTransaction struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Account     string          `json:"account"`
	Description string          `json:"description"`
}

// NewFromFile seeds the store from a JSON array of transactions. A missing
// file yields an empty store; malformed entries are skipped. Seeds are
// historical records that never pass through the service, so each one
// carries its own date as CreatedAt.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seeds []seedTransaction
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for _, st := range seeds {
		typ, err := core.ParseTransactionType(st.Type)
		if err != nil {
			continue
		}
		t := core.Transaction{
			Date:        st.Date,
			Amount:      st.Amount,
			Type:        typ,
			Category:    st.Category,
			Account:     st.Account,
			Description: st.Description,
			CreatedAt:   st.Date,
		}
		if t.Validate() != nil {
			continue
		}
		s.insertLocked(t)
	}
	return s, nil
}

// Insert stores t and assigns the next id.
func (s *Store) Insert(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t), nil
}

func (s *Store) insertLocked(t core.Transaction) core.Transaction {
	s.nextID++
	t.ID = s.nextID
	s.items = append(s.items, t)
	return t
}

func (s *Store) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, true, nil
		}
	}
	return core.Transaction{}, false, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedDesc(s.items, func(core.Transaction) bool { return true }), nil
}

func (s *Store) ListByRange(_ context.Context, from, to time.Time) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedDesc(s.items, func(t core.Transaction) bool {
		return !t.Date.Before(from) && !t.Date.After(to)
	}), nil
}

func (s *Store) Latest(ctx context.Context) (core.Transaction, bool, error) {
	all, _ := s.ListAll(ctx)
	if len(all) == 0 {
		return core.Transaction{}, false, nil
	}
	return all[0], true, nil
}

// sortedDesc copies the matching items ordered by date, most recent first.
// Equal dates put the higher id first, matching the SQLite store.
func sortedDesc(items []core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0, len(items))
	for _, t := range items {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
