package models

import "strings"

// Condition is the physical grade of a card.
type Condition string

const (
	ConditionNearMint         Condition = "NM"
	ConditionLightlyPlayed    Condition = "LP"
	ConditionModeratelyPlayed Condition = "MP"
	ConditionHeavilyPlayed    Condition = "HP"
	ConditionDamaged          Condition = "DMG"
)

// conditionSynonyms maps lowercase labels used by third-party tools to a Condition.
var conditionSynonyms = map[string]Condition{
	"nm":                    ConditionNearMint,
	"near mint":             ConditionNearMint,
	"near_mint":             ConditionNearMint,
	"mint":                  ConditionNearMint,
	"m":                     ConditionNearMint,
	"lp":                    ConditionLightlyPlayed,
	"lightly played":        ConditionLightlyPlayed,
	"lightly_played":        ConditionLightlyPlayed,
	"slightly played":       ConditionLightlyPlayed,
	"sp":                    ConditionLightlyPlayed,
	"excellent":             ConditionLightlyPlayed,
	"ex":                    ConditionLightlyPlayed,
	"good (lightly played)": ConditionLightlyPlayed,
	"mp":                    ConditionModeratelyPlayed,
	"moderately played":     ConditionModeratelyPlayed,
	"moderately_played":     ConditionModeratelyPlayed,
	"played":                ConditionModeratelyPlayed,
	"pl":                    ConditionModeratelyPlayed,
	"good":                  ConditionModeratelyPlayed,
	"gd":                    ConditionModeratelyPlayed,
	"hp":                    ConditionHeavilyPlayed,
	"heavily played":        ConditionHeavilyPlayed,
	"heavily_played":        ConditionHeavilyPlayed,
	"dmg":                   ConditionDamaged,
	"damaged":               ConditionDamaged,
	"poor":                  ConditionDamaged,
	"pr":                    ConditionDamaged,
}

// NormalizeCondition maps a free-form condition label to a Condition.
// Unrecognized or empty labels become NM.
func NormalizeCondition(s string) Condition {
	if c, ok := conditionSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return ConditionNearMint
}

// Valid reports whether c is one of the canonical conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNearMint, ConditionLightlyPlayed, ConditionModeratelyPlayed,
		ConditionHeavilyPlayed, ConditionDamaged:
		return true
	}
	return false
}

// OrDefault returns NM for an empty condition.
func (c Condition) OrDefault() Condition {
	if c == "" {
		return ConditionNearMint
	}
	return c
}

// Finish is the physical finish of a printing.
type Finish string

const (
	FinishNonfoil Finish = "nonfoil"
	FinishFoil    Finish = "foil"
	FinishEtched  Finish = "etched"
)

var finishSynonyms = map[string]Finish{
	"foil":        FinishFoil,
	"f":           FinishFoil,
	"yes":         FinishFoil,
	"y":           FinishFoil,
	"true":        FinishFoil,
	"1":           FinishFoil,
	"etched":      FinishEtched,
	"foil etched": FinishEtched,
	"etched foil": FinishEtched,
	"etch":        FinishEtched,
}

// NormalizeFinish maps a free-form foil column value to a Finish.
// Anything unrecognized is nonfoil.
func NormalizeFinish(s string) Finish {
	if f, ok := finishSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f
	}
	return FinishNonfoil
}

// Valid reports whether f is a known finish.
func (f Finish) Valid() bool {
	return f == FinishNonfoil || f == FinishFoil || f == FinishEtched
}

// OrDefault returns nonfoil for an empty finish.
func (f Finish) OrDefault() Finish {
	if f == "" {
		return FinishNonfoil
	}
	return f
}

// Section is the decklist section a line item was read from.
type Section string

const (
	SectionDeck       Section = "Deck"
	SectionCommander  Section = "Commander"
	SectionSideboard  Section = "Sideboard"
	SectionCompanion  Section = "Companion"
	SectionMaybeboard Section = "Maybeboard"
)

// LineStatus tracks a line item through catalog resolution.
type LineStatus string

const (
	StatusPending   LineStatus = "pending"
	StatusMatched   LineStatus = "matched"
	StatusUnmatched LineStatus = "unmatched"
	StatusSkipped   LineStatus = "skipped"
)

// CollectionType distinguishes trade binders from decks.
type CollectionType string

const (
	CollectionTypeTradeBinder CollectionType = "TRADE_BINDER"
	CollectionTypeDeck        CollectionType = "DECK"
)

// Valid reports whether t is a known collection type.
func (t CollectionType) Valid() bool {
	return t == CollectionTypeTradeBinder || t == CollectionTypeDeck
}

// DeckType is the construction format of a deck collection.
type DeckType string

const (
	DeckTypeCommander       DeckType = "COMMANDER"
	DeckTypeStandard        DeckType = "STANDARD"
	DeckTypePioneer         DeckType = "PIONEER"
	DeckTypeModern          DeckType = "MODERN"
	DeckTypeLegacy          DeckType = "LEGACY"
	DeckTypeVintage         DeckType = "VINTAGE"
	DeckTypePauper          DeckType = "PAUPER"
	DeckTypePauperCommander DeckType = "PAUPER_COMMANDER"
	DeckTypeBrawl           DeckType = "BRAWL"
	DeckTypeHistoric        DeckType = "HISTORIC"
	DeckTypeAlchemy         DeckType = "ALCHEMY"
	DeckTypePremodern       DeckType = "PREMODERN"
	DeckTypePlanarStandard  DeckType = "PLANAR_STANDARD"
	DeckTypeOathbreaker     DeckType = "OATHBREAKER"
	DeckTypeOther           DeckType = "OTHER"
)

// AllDeckTypes lists every DeckType in display order.
func AllDeckTypes() []DeckType {
	return []DeckType{
		DeckTypeCommander,
		DeckTypeStandard,
		DeckTypePioneer,
		DeckTypeModern,
		DeckTypeLegacy,
		DeckTypeVintage,
		DeckTypePauper,
		DeckTypePauperCommander,
		DeckTypeBrawl,
		DeckTypeHistoric,
		DeckTypeAlchemy,
		DeckTypePremodern,
		DeckTypePlanarStandard,
		DeckTypeOathbreaker,
		DeckTypeOther,
	}
}

// ParseDeckType parses a deck type case-insensitively.
func ParseDeckType(s string) (DeckType, bool) {
	candidate := DeckType(strings.ToUpper(strings.TrimSpace(s)))
	for _, dt := range AllDeckTypes() {
		if dt == candidate {
			return dt, true
		}
	}
	return "", false
}

// Visibility controls who can read a collection.
type Visibility string

const (
	VisibilityPrivate    Visibility = "PRIVATE"
	VisibilityInviteOnly Visibility = "INVITE_ONLY"
	VisibilityPublic     Visibility = "PUBLIC"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityInviteOnly || v == VisibilityPublic
}
