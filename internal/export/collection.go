package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Item is an entry paired with its catalog record.
type Item struct {
	Entry models.CollectionEntry
	Card  *scryfall.Card
}

// DeckboxRow is one line of a Deckbox inventory CSV.
type DeckboxRow struct {
	Count          int      `csv:"Count"`
	TradelistCount int      `csv:"Tradelist Count"`
	Name           string   `csv:"Name"`
	Edition        string   `csv:"Edition"`
	CardNumber     string   `csv:"Card Number"`
	Condition      string   `csv:"Condition"`
	Language       string   `csv:"Language"`
	Foil           string   `csv:"Foil"`
	Signed         string   `csv:"Signed"`
	ArtistProof    string   `csv:"Artist Proof"`
	AlteredArt     string   `csv:"Altered Art"`
	Misprint       string   `csv:"Misprint"`
	Promo          string   `csv:"Promo"`
	Textless       string   `csv:"Textless"`
	MyPrice        *float64 `csv:"My Price"`
}

// MoxfieldRow is one line of a Moxfield collection CSV.
type MoxfieldRow struct {
	Count           int      `csv:"Count"`
	TradelistCount  int      `csv:"Tradelist Count"`
	Name            string   `csv:"Name"`
	Edition         string   `csv:"Edition"`
	Condition       string   `csv:"Condition"`
	Language        string   `csv:"Language"`
	Foil            string   `csv:"Foil"`
	Tags            string   `csv:"Tags"`
	LastModified    string   `csv:"Last Modified"`
	CollectorNumber string   `csv:"Collector Number"`
	Alter           string   `csv:"Alter"`
	Proxy           string   `csv:"Proxy"`
	PurchasePrice   *float64 `csv:"Purchase Price"`
}

var deckboxConditions = map[models.Condition]string{
	models.ConditionNearMint:         "Near Mint",
	models.ConditionLightlyPlayed:    "Good (Lightly Played)",
	models.ConditionModeratelyPlayed: "Played",
	models.ConditionHeavilyPlayed:    "Heavily Played",
	models.ConditionDamaged:          "Poor",
}

var moxfieldConditions = map[models.Condition]string{
	models.ConditionNearMint:         "Near Mint",
	models.ConditionLightlyPlayed:    "Lightly Played",
	models.ConditionModeratelyPlayed: "Moderately Played",
	models.ConditionHeavilyPlayed:    "Heavily Played",
	models.ConditionDamaged:          "Damaged",
}

func conditionLabel(labels map[models.Condition]string, c models.Condition) string {
	if label, ok := labels[c.OrDefault()]; ok {
		return label
	}
	return labels[models.ConditionNearMint]
}

func finishLabel(f models.Finish) string {
	switch f {
	case models.FinishFoil:
		return "foil"
	case models.FinishEtched:
		return "etched"
	default:
		return ""
	}
}

// DeckboxRows converts items to Deckbox rows. Items without catalog data are
// left out. Deckbox names editions by full set name.
func DeckboxRows(items []Item) []DeckboxRow {
	rows := make([]DeckboxRow, 0, len(items))
	for _, it := range items {
		if it.Card == nil {
			continue
		}
		rows = append(rows, DeckboxRow{
			Count:      it.Entry.Quantity,
			Name:       it.Card.Name,
			Edition:    it.Card.SetName,
			CardNumber: it.Card.CollectorNumber,
			Condition:  conditionLabel(deckboxConditions, it.Entry.Condition),
			Language:   "English",
			Foil:       finishLabel(it.Entry.Finish),
			MyPrice:    it.Entry.PurchasePrice,
		})
	}
	return rows
}

// MoxfieldRows converts items to Moxfield rows. Items without catalog data
// are left out.
func MoxfieldRows(items []Item) []MoxfieldRow {
	rows := make([]MoxfieldRow, 0, len(items))
	for _, it := range items {
		if it.Card == nil {
			continue
		}
		row := MoxfieldRow{
			Count:           it.Entry.Quantity,
			Name:            it.Card.Name,
			Edition:         strings.ToLower(it.Card.SetCode),
			Condition:       conditionLabel(moxfieldConditions, it.Entry.Condition),
			Language:        "English",
			Foil:            finishLabel(it.Entry.Finish),
			CollectorNumber: it.Card.CollectorNumber,
			PurchasePrice:   it.Entry.PurchasePrice,
		}
		if !it.Entry.UpdatedAt.IsZero() {
			row.LastModified = it.Entry.UpdatedAt.UTC().Format("2006-01-02 15:04:05.000000")
		}
		rows = append(rows, row)
	}
	return rows
}

// Decklist renders items as decklist text with Commander, Deck and Sideboard
// sections. withPrinting adds "(SET) number" for Arena-style lists.
func Decklist(items []Item, withPrinting bool) string {
	var commander, deck, sideboard []Item
	for _, it := range items {
		if it.Card == nil {
			continue
		}
		switch {
		case it.Entry.IsCommander:
			commander = append(commander, it)
		case it.Entry.IsSideboard:
			sideboard = append(sideboard, it)
		default:
			deck = append(deck, it)
		}
	}

	var sb strings.Builder
	writeSection := func(header string, section []Item) {
		if len(section) == 0 {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(header)
		sb.WriteString("\n")
		for _, it := range section {
			line := fmt.Sprintf("%d %s", it.Entry.Quantity, it.Card.Name)
			if withPrinting && it.Card.SetCode != "" && it.Card.CollectorNumber != "" {
				line += fmt.Sprintf(" (%s) %s", strings.ToUpper(it.Card.SetCode), it.Card.CollectorNumber)
			}
			if it.Entry.Finish == models.FinishFoil && withPrinting {
				line += " *F*"
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	writeSection("Commander", commander)
	writeSection("Deck", deck)
	writeSection("Sideboard", sideboard)
	return sb.String()
}

// Write renders items in format f. It returns how many items were left out
// for lack of catalog data.
func Write(w io.Writer, f Format, items []Item) (skipped int, err error) {
	for _, it := range items {
		if it.Card == nil {
			skipped++
		}
	}

	switch f {
	case FormatDeckbox:
		err = WriteCSV(w, DeckboxRows(items))
	case FormatMoxfield:
		err = WriteCSV(w, MoxfieldRows(items))
	case FormatArena:
		_, err = io.WriteString(w, Decklist(items, true))
	case FormatText:
		_, err = io.WriteString(w, Decklist(items, false))
	case FormatJSON:
		entries := make([]models.CollectionEntry, len(items))
		for i, it := range items {
			entries[i] = it.Entry
		}
		skipped = 0
		err = WriteJSON(w, entries)
	default:
		return 0, fmt.Errorf("unsupported export format: %s", f)
	}
	return skipped, err
}
