package deckrules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Issue types.
const (
	IssueLegality       = "legality"
	IssueBanned         = "banned"
	IssueSet            = "set"
	IssueCopyLimit      = "copy_limit"
	IssueRestricted     = "restricted"
	IssueCommander      = "commander"
	IssueDeckSize       = "deck_size"
	IssueSideboardSize  = "sideboard_size"
	IssueMissingData    = "missing_data"
	IssueSignatureSpell = "signature_spell"
)

// Issue is one validation error or warning.
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	CardID  string `json:"card_id,omitempty"`
}

// Result is the outcome of validating a deck.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Result) addError(typ, cardID, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{Type: typ, Message: fmt.Sprintf(format, args...), CardID: cardID})
}

func (r *Result) addWarning(typ, cardID, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Type: typ, Message: fmt.Sprintf(format, args...), CardID: cardID})
}

// DeckCard is an entry paired with its catalog record. Card is nil when the
// catalog had no data for the entry.
type DeckCard struct {
	Entry models.CollectionEntry
	Card  *scryfall.Card
}

func (c DeckCard) name() string {
	if c.Card != nil {
		return c.Card.Name
	}
	return c.Entry.CatalogID
}

func (c DeckCard) isBasicLand() bool {
	return c.Card != nil && c.Card.IsBasicLand()
}

// anyNumberText marks cards that waive the copy limit for themselves.
const anyNumberText = "a deck can have any number of cards named"

func (c DeckCard) ignoresCopyLimit() bool {
	if c.isBasicLand() {
		return true
	}
	return c.Card != nil && strings.Contains(strings.ToLower(c.Card.OracleText), anyNumberText)
}

// Validate checks cards against rule. Every check runs; none stops another.
// A disabled rule or an empty deck yields a valid result with no issues.
func Validate(rule FormatRule, cards []DeckCard) Result {
	result := Result{Errors: []Issue{}, Warnings: []Issue{}}
	if rule.Disabled || len(cards) == 0 {
		result.Valid = true
		return result
	}

	checkCardData(&result, cards)
	switch {
	case rule.LegalityKey != "":
		checkLegality(&result, rule, cards)
	case rule.HasSetRules():
		checkSetRules(&result, rule, cards)
	}
	checkCopyLimit(&result, rule, cards)
	checkRestricted(&result, rule, cards)
	checkCommander(&result, rule, cards)
	checkDeckSize(&result, rule, cards)
	checkSideboard(&result, rule, cards)

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateDeckType looks up the rule for dt and validates cards against it.
func ValidateDeckType(dt models.DeckType, cards []DeckCard) Result {
	rule, ok := RuleFor(dt)
	if !ok {
		rule = FormatRule{Disabled: true}
	}
	return Validate(rule, cards)
}

func checkCardData(result *Result, cards []DeckCard) {
	for _, c := range cards {
		if c.Card == nil {
			result.addWarning(IssueMissingData, c.Entry.CatalogID,
				"No catalog data for card %s; it was not checked", c.Entry.CatalogID)
		}
	}
}

func checkLegality(result *Result, rule FormatRule, cards []DeckCard) {
	for _, c := range cards {
		if c.Card == nil || c.isBasicLand() {
			continue
		}
		switch c.Card.Legality(rule.LegalityKey) {
		case scryfall.Legal, scryfall.Restricted:
		default:
			result.addError(IssueLegality, c.Entry.CatalogID, "%s is not legal in %s", c.Card.Name, rule.Name)
		}
	}
}

func checkSetRules(result *Result, rule FormatRule, cards []DeckCard) {
	legal := make(map[string]bool, len(rule.LegalSets))
	for _, s := range rule.LegalSets {
		legal[strings.ToLower(s)] = true
	}
	banned := make(map[string]bool, len(rule.BannedCards))
	for _, name := range rule.BannedCards {
		banned[strings.ToLower(name)] = true
	}

	for _, c := range cards {
		if c.Card == nil || c.isBasicLand() {
			continue
		}
		if len(legal) > 0 && !legal[strings.ToLower(c.Card.SetCode)] {
			result.addError(IssueSet, c.Entry.CatalogID, "%s (%s) is not from a set legal in %s",
				c.Card.Name, strings.ToUpper(c.Card.SetCode), rule.Name)
		}
		if banned[strings.ToLower(c.Card.Name)] {
			result.addError(IssueBanned, c.Entry.CatalogID, "%s is banned in %s", c.Card.Name, rule.Name)
		}
	}
}

type nameTotal struct {
	name     string
	cardID   string
	quantity int
}

// totalsByName sums quantities per card name, in first-seen order, so that
// different printings of one card count together.
func totalsByName(cards []DeckCard, include func(DeckCard) bool) []*nameTotal {
	index := make(map[string]*nameTotal)
	var totals []*nameTotal
	for _, c := range cards {
		if !include(c) {
			continue
		}
		key := strings.ToLower(c.name())
		t, ok := index[key]
		if !ok {
			t = &nameTotal{name: c.name(), cardID: c.Entry.CatalogID}
			index[key] = t
			totals = append(totals, t)
		}
		t.quantity += c.Entry.Quantity
	}
	return totals
}

func checkCopyLimit(result *Result, rule FormatRule, cards []DeckCard) {
	limit := rule.CopyLimit()
	if limit == 0 {
		return
	}

	totals := totalsByName(cards, func(c DeckCard) bool {
		return !(rule.BasicLandExempt && c.ignoresCopyLimit())
	})
	for _, t := range totals {
		if t.quantity <= limit {
			continue
		}
		if rule.Singleton {
			result.addError(IssueCopyLimit, t.cardID, "%s has %d copies; %s is singleton", t.name, t.quantity, rule.Name)
		} else {
			result.addError(IssueCopyLimit, t.cardID, "%s has %d copies; %s allows at most %d", t.name, t.quantity, rule.Name, limit)
		}
	}
}

func checkRestricted(result *Result, rule FormatRule, cards []DeckCard) {
	if rule.RestrictedLimit == nil || rule.LegalityKey == "" {
		return
	}
	totals := totalsByName(cards, func(c DeckCard) bool {
		return c.Card != nil && c.Card.Legality(rule.LegalityKey) == scryfall.Restricted
	})
	for _, t := range totals {
		if t.quantity > *rule.RestrictedLimit {
			result.addError(IssueRestricted, t.cardID, "%s is restricted in %s; at most %d allowed",
				t.name, rule.Name, *rule.RestrictedLimit)
		}
	}
}

func checkCommander(result *Result, rule FormatRule, cards []DeckCard) {
	if !rule.RequiresCommander {
		return
	}

	hasCommander, hasSignature := false, false
	for _, c := range cards {
		hasCommander = hasCommander || c.Entry.IsCommander
		hasSignature = hasSignature || c.Entry.IsSignatureSpell
	}

	label := rule.CommanderLabel
	if label == "" {
		label = "Commander"
	}
	if !hasCommander {
		result.addError(IssueCommander, "", "%s deck has no %s", rule.Name, strings.ToLower(label))
	}

	// The commander's color identity is not cross-checked against the deck.
	// TODO: compare each card's color_identity with the commander's once the
	// product rules for partner and background pairs are settled.

	if rule.LegalityKey == "oathbreaker" && !hasSignature {
		result.addWarning(IssueSignatureSpell, "", "%s deck has no signature spell", rule.Name)
	}
}

func checkDeckSize(result *Result, rule FormatRule, cards []DeckCard) {
	if rule.MinDeckSize == nil && rule.MaxDeckSize == nil {
		return
	}

	total := 0
	for _, c := range cards {
		if !c.Entry.IsSideboard {
			total += c.Entry.Quantity
		}
	}

	lo, hi := rule.MinDeckSize, rule.MaxDeckSize
	switch {
	case lo != nil && hi != nil && *lo == *hi && total != *lo:
		result.addError(IssueDeckSize, "", "Deck has %d cards; %s requires exactly %d", total, rule.Name, *lo)
	case lo != nil && total < *lo:
		result.addError(IssueDeckSize, "", "Deck has %d cards; %s requires at least %d", total, rule.Name, *lo)
	case hi != nil && total > *hi:
		result.addError(IssueDeckSize, "", "Deck has %d cards; %s allows at most %d", total, rule.Name, *hi)
	}
}

func checkSideboard(result *Result, rule FormatRule, cards []DeckCard) {
	if rule.SideboardSize == nil {
		return
	}
	total := 0
	for _, c := range cards {
		if c.Entry.IsSideboard {
			total += c.Entry.Quantity
		}
	}
	if total > *rule.SideboardSize {
		if *rule.SideboardSize == 0 {
			result.addWarning(IssueSideboardSize, "", "%s does not use a sideboard; %d sideboard cards found", rule.Name, total)
			return
		}
		result.addWarning(IssueSideboardSize, "", "Sideboard has %d cards; %s allows at most %d", total, rule.Name, *rule.SideboardSize)
	}
}

// SortedIssues orders issues by type then message, for stable display.
func SortedIssues(issues []Issue) []Issue {
	out := append([]Issue(nil), issues...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Message < out[j].Message
	})
	return out
}
