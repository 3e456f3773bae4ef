// Package deckrules holds the construction rules of every deck format and
// validates decks against them.
package deckrules

import (
	"fmt"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// FormatRule describes how a deck of one format is built. Nil limits mean
// unlimited.
type FormatRule struct {
	Name        string `json:"name"`
	MinDeckSize *int   `json:"min_deck_size,omitempty"`
	MaxDeckSize *int   `json:"max_deck_size,omitempty"`
	MaxCopies   *int   `json:"max_copies,omitempty"`
	// BasicLandExempt lifts the copy limit for basic lands.
	BasicLandExempt bool `json:"basic_land_exempt"`
	// SideboardSize of 0 means no sideboard.
	SideboardSize     *int   `json:"sideboard_size,omitempty"`
	Singleton         bool   `json:"singleton"`
	RequiresCommander bool   `json:"requires_commander"`
	CommanderLabel    string `json:"commander_label,omitempty"`
	// LegalityKey is the catalog legality field checked per card.
	LegalityKey string `json:"legality_key,omitempty"`
	// RestrictedLimit caps cards whose legality is "restricted".
	RestrictedLimit *int `json:"restricted_limit,omitempty"`
	// LegalSets, LegalSetNames and BannedCards drive formats the catalog
	// has no legality field for.
	LegalSets     []string `json:"legal_sets,omitempty"`
	LegalSetNames []string `json:"legal_set_names,omitempty"`
	BannedCards   []string `json:"banned_cards,omitempty"`
	// Disabled formats are never evaluated.
	Disabled bool `json:"disabled,omitempty"`
}

// HasSetRules reports whether the format is checked by set list and ban list
// instead of a catalog legality field.
func (r FormatRule) HasSetRules() bool {
	return r.LegalityKey == "" && (len(r.LegalSets) > 0 || len(r.BannedCards) > 0)
}

// CopyLimit returns the per-name copy limit, or 0 for unlimited.
func (r FormatRule) CopyLimit() int {
	if r.Singleton {
		return 1
	}
	if r.MaxCopies == nil {
		return 0
	}
	return *r.MaxCopies
}

func intPtr(v int) *int { return &v }

func constructed(name, key string) FormatRule {
	return FormatRule{
		Name:            name,
		MinDeckSize:     intPtr(60),
		MaxCopies:       intPtr(4),
		BasicLandExempt: true,
		SideboardSize:   intPtr(15),
		LegalityKey:     key,
	}
}

func singleton(name, key string, size int, label string) FormatRule {
	return FormatRule{
		Name:              name,
		MinDeckSize:       intPtr(size),
		MaxDeckSize:       intPtr(size),
		BasicLandExempt:   true,
		Singleton:         true,
		RequiresCommander: true,
		CommanderLabel:    label,
		LegalityKey:       key,
	}
}

var rules = map[models.DeckType]FormatRule{
	models.DeckTypeCommander:       singleton("Commander", "commander", 100, "Commander"),
	models.DeckTypeStandard:        constructed("Standard", "standard"),
	models.DeckTypePioneer:         constructed("Pioneer", "pioneer"),
	models.DeckTypeModern:          constructed("Modern", "modern"),
	models.DeckTypeLegacy:          constructed("Legacy", "legacy"),
	models.DeckTypeVintage:         vintage(),
	models.DeckTypePauper:          constructed("Pauper", "pauper"),
	models.DeckTypePauperCommander: singleton("Pauper Commander", "paupercommander", 100, "Commander"),
	models.DeckTypeBrawl:           singleton("Brawl", "brawl", 60, "Commander"),
	models.DeckTypeHistoric:        constructed("Historic", "historic"),
	models.DeckTypeAlchemy:         constructed("Alchemy", "alchemy"),
	models.DeckTypePremodern:       constructed("Premodern", "premodern"),
	models.DeckTypePlanarStandard:  planarStandard(),
	models.DeckTypeOathbreaker:     singleton("Oathbreaker", "oathbreaker", 60, "Oathbreaker"),
	models.DeckTypeOther:           {Name: "Other", Disabled: true},
}

func vintage() FormatRule {
	r := constructed("Vintage", "vintage")
	r.RestrictedLimit = intPtr(1)
	return r
}

func planarStandard() FormatRule {
	r := constructed("Planar Standard", "")
	r.LegalSets = []string{"dmu", "bro", "one", "mom", "mat", "woe", "lci", "mkm", "otj", "blb", "dsk", "fdn", "dft", "tdm"}
	r.LegalSetNames = []string{
		"Dominaria United", "The Brothers' War", "Phyrexia: All Will Be One",
		"March of the Machine", "March of the Machine: The Aftermath", "Wilds of Eldraine",
		"The Lost Caverns of Ixalan", "Murders at Karlov Manor", "Outlaws of Thunder Junction",
		"Bloomburrow", "Duskmourn: House of Horror", "Foundations", "Aetherdrift",
		"Tarkir: Dragonstorm",
	}
	r.BannedCards = []string{"The One Ring", "Sheoldred, the Apocalypse", "Cori-Steel Cutter"}
	return r
}

func init() {
	for _, dt := range models.AllDeckTypes() {
		if _, ok := rules[dt]; !ok {
			panic(fmt.Sprintf("deckrules: no rule for deck type %s", dt))
		}
	}
	if len(rules) != len(models.AllDeckTypes()) {
		panic("deckrules: rule table has entries for unknown deck types")
	}
}

// RuleFor returns the rule of a deck type.
func RuleFor(dt models.DeckType) (FormatRule, bool) {
	r, ok := rules[dt]
	return r, ok
}

// Rules returns a copy of the full rule table.
func Rules() map[models.DeckType]FormatRule {
	out := make(map[models.DeckType]FormatRule, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out
}
