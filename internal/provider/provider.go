// Package provider implements the collaborators the transaction service
// cannot compute itself: server time, regional tax rates, duplicate
// scoring and currency exchange rates.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultExchangeRateURL = "https://api.exchangerate.host"
	DefaultRateTTL         = 30 * time.Minute
	rateCacheSize          = 64
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

var (
	taxRates = map[string]decimal.Decimal{
		"CN": decimal.RequireFromString("0.06"),
		"US": decimal.RequireFromString("0.08"),
		"EU": decimal.RequireFromString("0.20"),
		"UK": decimal.RequireFromString("0.20"),
	}
	defaultTaxRate = decimal.RequireFromString("0.10")
)

var _ ports.Provider = (*Provider)(nil)

type Provider struct {
	now        func() time.Time
	httpClient *http.Client
	rateURL    string
	rates      *cache.LRUCache[decimal.Decimal]
}

type Option func(*Provider)

// WithClock replaces the system clock.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// New builds a Provider fetching rates from rateURL and caching each
// currency pair for rateTTL.
func New(rateURL string, rateTTL time.Duration, opts ...Option) *Provider {
	if rateURL == "" {
		rateURL = DefaultExchangeRateURL
	}
	if rateTTL <= 0 {
		rateTTL = DefaultRateTTL
	}
	p := &Provider{
		now:        time.Now,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rateURL:    strings.TrimRight(rateURL, "/"),
		rates:      cache.NewLRUCache[decimal.Decimal](rateCacheSize, rateTTL),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Now returns the server time used for audit stamps.
func (p *Provider) Now() time.Time {
	return p.now()
}

// TaxRate returns the rate for a region code, case-insensitively, falling
// back to the default rate for unknown regions.
func (p *Provider) TaxRate(region string) decimal.Decimal {
	if rate, ok := taxRates[strings.ToUpper(strings.TrimSpace(region))]; ok {
		return rate
	}
	return defaultTaxRate
}

// RateCache exposes the exchange rate cache for periodic cleanup.
func (p *Provider) RateCache() cache.Cleaner {
	return p.rates
}

// NewReference returns a unique external reference for a transaction event.
func NewReference() string {
	return "TXN_" + uuid.NewString()
}

type latestRatesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// ExchangeRate returns how many units of to one unit of from buys.
func (p *Provider) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return decimal.Zero, fmt.Errorf("%w: currency codes are required", ErrRateUnavailable)
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := from + ":" + to
	if rate, ok := p.rates.Get(key); ok {
		return rate, nil
	}

	rate, err := p.fetchRate(ctx, from, to)
	if err != nil {
		slog.WarnContext(ctx, "Exchange rate fetch failed", "from", from, "to", to, "error", err)
		return decimal.Zero, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	p.rates.Set(key, rate)
	return rate, nil
}

func (p *Provider) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("base", from)
	q.Set("symbols", to)
	endpoint := p.rateURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("get rates: unexpected status %d", resp.StatusCode)
	}

	var body latestRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}
	rate, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate for %s missing in response", to)
	}
	return rate, nil
}
