package provider

import (
	"strings"

	"fintrack/internal/core"
)

// Similarity weights. A perfect match scores 100.
const (
	amountWeight      = 30
	descriptionWeight = 20
	typeWeight        = 10
	categoryWeight    = 10
	accountWeight     = 10
	sameDayWeight     = 20

	// DuplicateThreshold is the minimum score flagged as a potential
	// duplicate. Amount, description and day together only reach 70, so
	// at least one more field has to agree.
	DuplicateThreshold = 80
)

// Score rates how similar candidate is to reference on a 0-100 scale.
func Score(candidate, reference core.Transaction) int {
	score := 0

	if candidate.Amount.Equal(reference.Amount) {
		score += amountWeight
	}
	if candidate.Description != "" && reference.Description != "" &&
		strings.EqualFold(candidate.Description, reference.Description) {
		score += descriptionWeight
	}
	if candidate.Type == reference.Type {
		score += typeWeight
	}
	if candidate.Category == reference.Category {
		score += categoryWeight
	}
	if candidate.Account == reference.Account {
		score += accountWeight
	}
	if core.SameDay(candidate.Date, reference.Date) {
		score += sameDayWeight
	}

	return score
}

// IsPotentialDuplicate reports whether candidate looks like a re-entry of
// reference.
func (p *Provider) IsPotentialDuplicate(candidate, reference core.Transaction) bool {
	return Score(candidate, reference) >= DuplicateThreshold
}
