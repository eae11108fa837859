// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Query parameters and JSON bodies are turned into domain values here so
// handlers only deal with typed input.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	maxRequestBody = 1 << 20
)

var ErrBadRequest = errors.New("bad request")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// now as default for missing values. Non-numeric values are rejected.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	var err error
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if params.Year, err = strconv.Atoi(v); err != nil {
			return MonthParams{}, fmt.Errorf("%w: year %q", ErrBadRequest, v)
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if params.Month, err = strconv.Atoi(v); err != nil {
			return MonthParams{}, fmt.Errorf("%w: month %q", ErrBadRequest, v)
		}
	}
	return params, nil
}

// ParseDate accepts YYYY-MM-DD (interpreted in loc) or RFC3339.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing date", ErrBadRequest)
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrBadRequest, s)
}

// ParseDateRange reads the start and end query parameters.
func ParseDateRange(query url.Values, loc *time.Location) (start, end time.Time, err error) {
	if start, err = ParseDate(query.Get("start"), loc); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = ParseDate(query.Get("end"), loc); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ParseID extracts a positive transaction id from the {id} path segment.
func ParseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", ErrBadRequest, raw)
	}
	return id, nil
}

// ParseDecimal parses a non-negative decimal, accepting a comma separator.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrBadRequest, s)
	}
	return d, nil
}

// amountField accepts an amount given either as a JSON string or number.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

// TransactionRequest is the JSON body accepted when recording or checking
// a transaction.
type TransactionRequest struct {
	Date        string      `json:"date"`
	Amount      amountField `json:"amount"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Account     string      `json:"account"`
	Description string      `json:"description"`
}

// DecodeTransactionRequest reads a TransactionRequest from the body,
// rejecting unknown fields and trailing data.
func DecodeTransactionRequest(r *http.Request) (TransactionRequest, error) {
	var req TransactionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return TransactionRequest{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if dec.More() {
		return TransactionRequest{}, fmt.Errorf("%w: unexpected data after body", ErrBadRequest)
	}
	return req, nil
}

// ToTransaction converts the request into a domain transaction. A blank
// date means now. Only the shape of each field is checked; business
// validation happens in the service.
func (req TransactionRequest) ToTransaction(now time.Time) (core.Transaction, error) {
	date := now
	if strings.TrimSpace(req.Date) != "" {
		var err error
		if date, err = ParseDate(req.Date, now.Location()); err != nil {
			return core.Transaction{}, err
		}
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return core.Transaction{
		Date:        date,
		Amount:      amount,
		Type:        typ,
		Category:    sanitizeInput(req.Category),
		Account:     sanitizeInput(req.Account),
		Description: sanitizeInput(req.Description),
	}, nil
}

// sanitizeInput removes control characters other than tab and newlines
// and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
