// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the wire representations of domain values.

package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"fintrack/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// BadGatewayError creates a 502 Bad Gateway error response.
func BadGatewayError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

// NoContent creates an empty 204 response.
func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

type (
	transactionJSON struct {
		ID          int64     `json:"id"`
		Date        time.Time `json:"date"`
		Amount      string    `json:"amount"`
		Type        string    `json:"type"`
		Category    string    `json:"category"`
		Account     string    `json:"account"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	totalsJSON struct {
		Income  string `json:"income"`
		Expense string `json:"expense"`
		Balance string `json:"balance"`
	}

	categoryJSON struct {
		Category string `json:"category"`
		Amount   string `json:"amount"`
	}

	monthOverviewJSON struct {
		Year       int            `json:"year"`
		Month      int            `json:"month"`
		Totals     totalsJSON     `json:"totals"`
		ByCategory []categoryJSON `json:"by_category"`
	}

	monthlySummaryJSON struct {
		Month  string     `json:"month"`
		Totals totalsJSON `json:"totals"`
	}

	yearlySummaryJSON struct {
		Year   int                  `json:"year"`
		Totals totalsJSON           `json:"totals"`
		Months []monthlySummaryJSON `json:"months"`
	}

	dashboardJSON struct {
		Overview        monthOverviewJSON `json:"overview"`
		LastTransaction *transactionJSON  `json:"last_transaction"`
	}
)

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date,
		Amount:      core.FormatAmount(t.Amount),
		Type:        t.Type.String(),
		Category:    t.Category,
		Account:     t.Account,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

func toTotalsJSON(t core.Totals) totalsJSON {
	return totalsJSON{
		Income:  core.FormatAmount(t.Income),
		Expense: core.FormatAmount(t.Expense),
		Balance: core.FormatAmount(t.Balance),
	}
}

// toCategoriesJSON orders categories by descending amount, then name.
func toCategoriesJSON(s core.CategorySummary) []categoryJSON {
	out := make([]categoryJSON, 0, len(s))
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if c := s[names[i]].Cmp(s[names[j]]); c != 0 {
			return c > 0
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		out = append(out, categoryJSON{Category: name, Amount: core.FormatAmount(s[name])})
	}
	return out
}

func toMonthOverviewJSON(o core.MonthOverview) monthOverviewJSON {
	return monthOverviewJSON{
		Year:       o.Year,
		Month:      o.Month,
		Totals:     toTotalsJSON(o.Totals),
		ByCategory: toCategoriesJSON(o.ByCategory),
	}
}

func toYearlySummaryJSON(y core.YearlySummary) yearlySummaryJSON {
	months := make([]monthlySummaryJSON, 0, len(y.Months))
	for _, m := range y.Months {
		months = append(months, monthlySummaryJSON{Month: m.Month, Totals: toTotalsJSON(m.Totals)})
	}
	return yearlySummaryJSON{
		Year:   y.Year,
		Totals: toTotalsJSON(y.Totals),
		Months: months,
	}
}
