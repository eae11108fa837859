package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/provider"
	"fintrack/internal/services"

	"golang.org/x/sync/errgroup"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady verifies that the transaction store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, _, err := s.svc.GetLastTransaction(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		txs []core.Transaction
		err error
	)
	if q == "" {
		txs, err = s.svc.ListTransactions(r.Context())
	} else {
		txs, err = s.svc.SearchTransactions(r.Context(), q)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toTransactionsJSON(txs)).Write(w)
}

func (s *Server) handleTransactionsInRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := ParseDateRange(r.URL.Query(), s.svc.Now().Location())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txs, err := s.svc.ListTransactionsInRange(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toTransactionsJSON(txs)).Write(w)
}

func (s *Server) handleLastTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok, err := s.svc.GetLastTransaction(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		NotFoundError("no transactions recorded").Write(w)
		return
	}
	NewJSONResponse().JSON(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeTransactionRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := req.ToTransaction(s.svc.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.svc.AddTransaction(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+strconv.FormatInt(saved.ID, 10)).
		JSON(toTransactionJSON(saved)).
		Write(w)
}

func (s *Server) handleDuplicateCheck(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeTransactionRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := req.ToTransaction(s.svc.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dup, err := s.svc.CheckDuplicate(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(map[string]bool{"duplicate": dup}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.svc.DeleteTransaction(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		NotFoundError("transaction not found").Write(w)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := ParseDateRange(r.URL.Query(), s.svc.Now().Location())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.svc.CategorySummary(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toCategoriesJSON(summary)).Write(w)
}

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.svc.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	overview, err := s.svc.MonthOverview(r.Context(), p.Year, p.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toMonthOverviewJSON(overview)).Write(w)
}

func (s *Server) handleYearlySummary(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.svc.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.svc.YearlySummary(r.Context(), p.Year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(toYearlySummaryJSON(summary)).Write(w)
}

// handleDashboard loads the month overview and the latest transaction
// concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.svc.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		overview core.MonthOverview
		last     core.Transaction
		hasLast  bool
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		overview, err = s.svc.MonthOverview(ctx, p.Year, p.Month)
		return err
	})
	g.Go(func() error {
		var err error
		last, hasLast, err = s.svc.GetLastTransaction(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, r, err)
		return
	}

	body := dashboardJSON{Overview: toMonthOverviewJSON(overview)}
	if hasLast {
		lt := toTransactionJSON(last)
		body.LastTransaction = &lt
	}
	NewJSONResponse().JSON(body).Write(w)
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amount, err := ParseDecimal(query.Get("amount"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	region := strings.TrimSpace(query.Get("region"))
	total := s.svc.CalculateWithTax(amount, region)
	NewJSONResponse().JSON(map[string]string{
		"amount": core.FormatAmount(amount),
		"region": strings.ToUpper(region),
		"total":  core.FormatAmount(total),
	}).Write(w)
}

func (s *Server) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from := strings.ToUpper(strings.TrimSpace(query.Get("from")))
	to := strings.ToUpper(strings.TrimSpace(query.Get("to")))
	if from == "" || to == "" {
		BadRequestError("from and to currencies are required").Write(w)
		return
	}
	rate, err := s.svc.ExchangeRate(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(map[string]string{
		"from": from,
		"to":   to,
		"rate": rate.String(),
	}).Write(w)
}

var validationErrors = []error{
	ErrBadRequest,
	services.ErrInvalidPeriod,
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrEmptyCategory,
	core.ErrEmptyAccount,
	core.ErrInvalidDate,
	core.ErrDescriptionTooLong,
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			BadRequestError(err.Error()).Write(w)
			return
		}
	}
	if errors.Is(err, provider.ErrRateUnavailable) {
		BadGatewayError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).ErrorContext(ctx, "Request failed",
		log.FieldPath, r.URL.Path, log.FieldError, err)
	InternalServerError("internal error").Write(w)
}
