// Package aggregate folds resolved line items into one entry per distinct
// (card, condition, finish, role) combination.
package aggregate

import (
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CompanionNote is the note attached to entries read from a Companion section.
const CompanionNote = "Companion"

// Roles are the deck role flags of an entry.
type Roles struct {
	IsCommander      bool
	IsSideboard      bool
	IsSignatureSpell bool
}

// Key identifies one aggregated entry.
type Key struct {
	CatalogID string
	Condition models.Condition
	Finish    models.Finish
	Roles
}

// RolesFunc derives the roles of an item. ok is false for items that must
// not be aggregated. note, when non-nil, replaces the item's own notes.
type RolesFunc func(item *models.LineItem) (roles Roles, note *string, ok bool)

// SectionRoles derives roles from the decklist section.
func SectionRoles(item *models.LineItem) (Roles, *string, bool) {
	switch item.Section {
	case models.SectionMaybeboard:
		return Roles{}, nil, false
	case models.SectionCommander:
		return Roles{IsCommander: true}, nil, true
	case models.SectionSideboard:
		return Roles{IsSideboard: true}, nil, true
	case models.SectionCompanion:
		note := CompanionNote
		return Roles{IsSideboard: true}, &note, true
	default:
		return Roles{}, nil, true
	}
}

// FlagRoles takes roles from the item's own flags. Used for CSV imports.
func FlagRoles(item *models.LineItem) (Roles, *string, bool) {
	if item.Section == models.SectionMaybeboard {
		return Roles{}, nil, false
	}
	return Roles{
		IsCommander:      item.IsCommander,
		IsSideboard:      item.IsSideboard,
		IsSignatureSpell: item.IsSignatureSpell,
	}, nil, true
}

// Decklist aggregates items parsed from decklist text.
func Decklist(items []*models.LineItem) []models.AggregatedEntry {
	return Aggregate(items, SectionRoles)
}

// Entries aggregates items that carry explicit role flags.
func Entries(items []*models.LineItem) []models.AggregatedEntry {
	return Aggregate(items, FlagRoles)
}

// Aggregate sums the quantities of matched items sharing a key. Price and
// notes come from the first item that has one. Entries are returned in the
// order their key was first seen, but callers must not rely on order.
func Aggregate(items []*models.LineItem, rolesFor RolesFunc) []models.AggregatedEntry {
	index := make(map[Key]int)
	var out []models.AggregatedEntry

	for _, item := range items {
		if item == nil || item.Status != models.StatusMatched || item.ResolvedCatalogID == "" {
			continue
		}
		roles, note, ok := rolesFor(item)
		if !ok {
			continue
		}
		if note == nil {
			note = item.Notes
		}

		key := Key{
			CatalogID: item.ResolvedCatalogID,
			Condition: item.Condition.OrDefault(),
			Finish:    item.Finish.OrDefault(),
			Roles:     roles,
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, models.AggregatedEntry{
				CatalogID:        key.CatalogID,
				Condition:        key.Condition,
				Finish:           key.Finish,
				IsCommander:      roles.IsCommander,
				IsSideboard:      roles.IsSideboard,
				IsSignatureSpell: roles.IsSignatureSpell,
			})
			i = len(out) - 1
		}

		entry := &out[i]
		entry.Quantity += max(item.Quantity, 1)
		if entry.PurchasePrice == nil && item.PurchasePrice != nil {
			price := *item.PurchasePrice
			entry.PurchasePrice = &price
		}
		if entry.Notes == nil && note != nil && strings.TrimSpace(*note) != "" {
			n := *note
			entry.Notes = &n
		}
	}

	return out
}

// KeyOf returns the aggregation key of an entry.
func KeyOf(e models.AggregatedEntry) Key {
	return Key{
		CatalogID: e.CatalogID,
		Condition: e.Condition.OrDefault(),
		Finish:    e.Finish.OrDefault(),
		Roles: Roles{
			IsCommander:      e.IsCommander,
			IsSideboard:      e.IsSideboard,
			IsSignatureSpell: e.IsSignatureSpell,
		},
	}
}

// TotalQuantity sums entry quantities.
func TotalQuantity(entries []models.AggregatedEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}
