package deckrules

import "github.com/ramonehamilton/mtg-binder/internal/storage/models"

// Status is how a collection's validation is presented.
type Status string

const (
	// StatusNotEvaluated is used for trade binders and decks without rules.
	StatusNotEvaluated Status = "not_evaluated"
	// StatusEmpty is a rule-bearing deck with no entries.
	StatusEmpty Status = "empty"
	// StatusEvaluated carries a real validation result.
	StatusEvaluated Status = "evaluated"
)

// Report is the validation of one collection.
type Report struct {
	Status   Status          `json:"status"`
	DeckType models.DeckType `json:"deck_type,omitempty"`
	Format   string          `json:"format,omitempty"`
	Result   Result          `json:"result"`
}

// Evaluate validates a collection. It performs no ownership checks.
func Evaluate(c *models.Collection, cards []DeckCard) Report {
	empty := Result{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}

	if c == nil || !c.IsDeck() || c.DeckType == nil {
		return Report{Status: StatusNotEvaluated, Result: empty}
	}

	rule, ok := RuleFor(*c.DeckType)
	if !ok || rule.Disabled {
		return Report{Status: StatusNotEvaluated, DeckType: *c.DeckType, Result: empty}
	}

	report := Report{DeckType: *c.DeckType, Format: rule.Name}
	if len(cards) == 0 {
		report.Status = StatusEmpty
		report.Result = empty
		return report
	}

	report.Status = StatusEvaluated
	report.Result = Validate(rule, cards)
	return report
}
