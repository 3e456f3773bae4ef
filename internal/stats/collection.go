// Package stats computes collection statistics.
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

const (
	// TopCardsLimit is the length of the most-valuable list.
	TopCardsLimit = 10

	ColorColorless  = "Colorless"
	ColorMulticolor = "Multicolor"
	RarityUnknown   = "Unknown"
)

// TopCard is one entry of the most-valuable list.
type TopCard struct {
	EntryID       int     `json:"entry_id"`
	CatalogID     string  `json:"scryfall_id"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	TotalValue    float64 `json:"total_value"`
}

// CollectionStats summarizes a collection.
type CollectionStats struct {
	TotalCards      int            `json:"total_cards"`
	TotalValue      float64        `json:"total_value"`
	UniqueCards     int            `json:"unique_cards"`
	ColorBreakdown  map[string]int `json:"color_breakdown"`
	RarityBreakdown map[string]int `json:"rarity_breakdown"`
	TopCards        []TopCard      `json:"top_cards"`
	MissingData     int            `json:"missing_data"`
}

// Calculate computes statistics over entries. cards maps catalog IDs to
// their records; entries without a record count toward totals only.
func Calculate(entries []models.CollectionEntry, cards map[string]*scryfall.Card) *CollectionStats {
	stats := &CollectionStats{
		ColorBreakdown:  make(map[string]int),
		RarityBreakdown: make(map[string]int),
		TopCards:        []TopCard{},
	}

	unique := make(map[string]bool)
	var value float64
	var priced []TopCard

	for _, e := range entries {
		stats.TotalCards += e.Quantity
		unique[e.CatalogID] = true
		if e.PurchasePrice != nil {
			value += *e.PurchasePrice * float64(e.Quantity)
		}

		card := cards[e.CatalogID]
		if card == nil {
			stats.MissingData++
			continue
		}

		stats.ColorBreakdown[colorKey(card.Colors)] += e.Quantity
		stats.RarityBreakdown[rarityKey(card.Rarity)] += e.Quantity

		if e.PurchasePrice != nil {
			priced = append(priced, TopCard{
				EntryID:       e.ID,
				CatalogID:     e.CatalogID,
				Name:          card.Name,
				Quantity:      e.Quantity,
				PurchasePrice: *e.PurchasePrice,
				TotalValue:    roundCents(*e.PurchasePrice * float64(e.Quantity)),
			})
		}
	}

	// Stable so equal values keep entry order.
	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].PurchasePrice*float64(priced[i].Quantity) > priced[j].PurchasePrice*float64(priced[j].Quantity)
	})
	if len(priced) > TopCardsLimit {
		priced = priced[:TopCardsLimit]
	}
	if priced != nil {
		stats.TopCards = priced
	}

	stats.TotalValue = roundCents(value)
	stats.UniqueCards = len(unique)
	return stats
}

func colorKey(colors []string) string {
	switch len(colors) {
	case 0:
		return ColorColorless
	case 1:
		return colors[0]
	default:
		return ColorMulticolor
	}
}

func rarityKey(rarity string) string {
	if rarity == "" {
		return RarityUnknown
	}
	return strings.ToUpper(rarity[:1]) + rarity[1:]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
