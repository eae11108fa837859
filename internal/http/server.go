package http

import (
	"net/http"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type Server struct {
	http.Server
	svc     *services.TransactionService
	logger  *log.Logger
	limiter *rateLimiter
	started time.Time
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.TransactionService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.ForComponent(log.ComponentHTTP)
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:     svc,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: newRateLimiter(defaultWritesPerMinute),
		started: time.Now(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.limiter.limitFunc(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/range", s.handleTransactionsInRange)
	mux.HandleFunc("GET /api/transactions/last", s.handleLastTransaction)
	mux.HandleFunc("POST /api/transactions/duplicate-check", s.handleDuplicateCheck)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.limiter.limitFunc(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/summary/categories", s.handleCategorySummary)
	mux.HandleFunc("GET /api/summary/month", s.handleMonthOverview)
	mux.HandleFunc("GET /api/summary/year", s.handleYearlySummary)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/tax", s.handleTax)
	mux.HandleFunc("GET /api/exchange-rate", s.handleExchangeRate)

	s.Handler = log.Middleware(s.logger)(mux)
	return s
}

// RateLimiter exposes the write limiter for periodic cleanup.
func (s *Server) RateLimiter() cache.Cleaner {
	return s.limiter
}
