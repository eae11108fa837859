package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func lunch() core.Transaction {
	return core.Transaction{
		Date:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(100),
		Type:        core.Expense,
		Category:    "food",
		Account:     "wechat",
		Description: "lunch",
	}
}

func TestScore(t *testing.T) {
	last := lunch()

	tests := []struct {
		name      string
		mutate    func(*core.Transaction)
		wantScore int
		wantDup   bool
	}{
		{"identical", func(*core.Transaction) {}, 100, true},
		{"description differs", func(c *core.Transaction) { c.Description = "dinner" }, 80, true},
		{"description and category differ", func(c *core.Transaction) {
			c.Description = "dinner"
			c.Category = "snacks"
		}, 70, false},
		{"description case ignored", func(c *core.Transaction) { c.Description = "LUNCH" }, 100, true},
		{"empty descriptions never match", func(c *core.Transaction) { c.Description = "" }, 80, true},
		{"same day different time", func(c *core.Transaction) {
			c.Date = time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
		}, 100, true},
		{"only amount matches", func(c *core.Transaction) {
			c.Description = "salary"
			c.Type = core.Income
			c.Category = "work"
			c.Account = "bank"
			c.Date = c.Date.AddDate(0, 0, 3)
		}, 30, false},
		{"equal decimals with different scale", func(c *core.Transaction) {
			c.Amount = decimal.RequireFromString("100.00")
		}, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := lunch()
			tt.mutate(&candidate)
			if got := Score(candidate, last); got != tt.wantScore {
				t.Fatalf("Score() = %d, want %d", got, tt.wantScore)
			}
			p := New("", 0)
			if got := p.IsPotentialDuplicate(candidate, last); got != tt.wantDup {
				t.Fatalf("IsPotentialDuplicate() = %v, want %v", got, tt.wantDup)
			}
		})
	}
}

func TestTaxRate(t *testing.T) {
	p := New("", 0)
	tests := map[string]string{
		"CN":    "0.06",
		"us":    "0.08",
		"Eu":    "0.2",
		"uk":    "0.2",
		"JP":    "0.1",
		"":      "0.1",
		" cn  ": "0.06",
	}
	for region, want := range tests {
		if got := p.TaxRate(region); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("TaxRate(%q) = %s, want %s", region, got, want)
		}
	}
}

func TestNowUsesClock(t *testing.T) {
	fixed := time.Date(2030, 5, 5, 5, 5, 5, 0, time.UTC)
	p := New("", 0, WithClock(func() time.Time { return fixed }))
	if !p.Now().Equal(fixed) {
		t.Fatalf("Now() = %v", p.Now())
	}
}

func TestNewReference(t *testing.T) {
	a, b := NewReference(), NewReference()
	if !strings.HasPrefix(a, "TXN_") || a == b {
		t.Fatalf("unexpected references %q %q", a, b)
	}
}

func TestExchangeRateFetchesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/latest" || r.URL.Query().Get("base") != "USD" || r.URL.Query().Get("symbols") != "CNY" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"CNY":7.1234}}`))
	}))
	defer srv.Close()

	p := New(srv.URL, time.Minute, WithHTTPClient(srv.Client()))

	for i := 0; i < 3; i++ {
		rate, err := p.ExchangeRate(context.Background(), "usd", "cny")
		if err != nil {
			t.Fatalf("ExchangeRate: %v", err)
		}
		if !rate.Equal(decimal.RequireFromString("7.1234")) {
			t.Fatalf("rate = %s", rate)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}
}

func TestExchangeRateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Minute, WithHTTPClient(srv.Client()))
	_, err := p.ExchangeRate(context.Background(), "EUR", "USD")
	if !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
}

func TestExchangeRateSameCurrency(t *testing.T) {
	p := New("http://127.0.0.1:0", time.Minute)
	rate, err := p.ExchangeRate(context.Background(), "eur", "EUR")
	if err != nil || !rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("rate = %s, err = %v", rate, err)
	}
}
