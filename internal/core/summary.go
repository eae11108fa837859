package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type (
	// Totals holds income and expense sums over a set of transactions.
	Totals struct {
		Income  decimal.Decimal
		Expense decimal.Decimal
		Balance decimal.Decimal // Income - Expense
	}

	MonthlySummary struct {
		Month       string // "YYYY-MM"
		Year        int
		MonthNumber int
		Totals
	}

	YearlySummary struct {
		Year   int
		Totals Totals
		Months []MonthlySummary
	}

	// CategorySummary maps a category to its summed expense amount.
	CategorySummary map[string]decimal.Decimal

	// MonthOverview is the dashboard view of a single month.
	MonthOverview struct {
		Year       int
		Month      int
		Totals     Totals
		ByCategory CategorySummary
	}
)

// SumTotals adds up income and expense amounts. Transactions with an
// unrecognized type contribute to neither side.
func SumTotals(txs []Transaction) Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount)
		case Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// SummarizeCategories groups expense transactions by category. Categories
// without expenses are absent from the result.
func SummarizeCategories(txs []Transaction) CategorySummary {
	out := CategorySummary{}
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// SummarizeMonths builds one MonthlySummary per month from 1 through
// lastMonth, bucketing transactions by the month of their date.
func SummarizeMonths(year, lastMonth int, txs []Transaction) []MonthlySummary {
	buckets := make(map[int][]Transaction, lastMonth)
	for _, tx := range txs {
		m := int(tx.Date.Month())
		buckets[m] = append(buckets[m], tx)
	}

	months := make([]MonthlySummary, 0, lastMonth)
	for m := 1; m <= lastMonth; m++ {
		months = append(months, MonthlySummary{
			Month:       MonthLabel(year, m),
			Year:        year,
			MonthNumber: m,
			Totals:      SumTotals(buckets[m]),
		})
	}
	return months
}

func MonthLabel(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
