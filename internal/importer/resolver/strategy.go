package resolver

import (
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Strategy is how a line item is looked up in the catalog.
type Strategy int

const (
	// ByName looks the card up by name only.
	ByName Strategy = iota
	// ByNameAndSet looks the card up by name within a set.
	ByNameAndSet
	// BySetAndNumber looks up one exact printing.
	BySetAndNumber
)

func (s Strategy) String() string {
	switch s {
	case BySetAndNumber:
		return "set+collector_number"
	case ByNameAndSet:
		return "name+set"
	default:
		return "name"
	}
}

// StrategyFor picks the most specific lookup the item supports.
func StrategyFor(item *models.LineItem) Strategy {
	switch {
	case item.SetCode != "" && item.CollectorNumber != "":
		return BySetAndNumber
	case item.SetCode != "":
		return ByNameAndSet
	default:
		return ByName
	}
}

// LookupName returns the name sent to the catalog. Multi-faced names are
// looked up by their front face.
func LookupName(name string) string {
	if i := strings.Index(name, scryfall.FaceSeparator); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}

// Identifier builds the batch lookup identifier for an item.
func Identifier(item *models.LineItem) scryfall.CardIdentifier {
	switch StrategyFor(item) {
	case BySetAndNumber:
		return scryfall.CardIdentifier{Set: item.SetCode, CollectorNumber: item.CollectorNumber}
	case ByNameAndSet:
		return scryfall.CardIdentifier{Name: LookupName(item.Name), Set: item.SetCode}
	default:
		return scryfall.CardIdentifier{Name: LookupName(item.Name)}
	}
}

type printingKey struct {
	set    string
	number string
}

type nameSetKey struct {
	name string
	set  string
}

// lookup indexes one batch response.
type lookup struct {
	byPrinting map[printingKey]*scryfall.Card
	byNameSet  map[nameSetKey]*scryfall.Card
	byName     map[string]*scryfall.Card
}

func newLookup(cards []scryfall.Card) *lookup {
	l := &lookup{
		byPrinting: make(map[printingKey]*scryfall.Card, len(cards)),
		byNameSet:  make(map[nameSetKey]*scryfall.Card, len(cards)),
		byName:     make(map[string]*scryfall.Card, len(cards)),
	}

	for i := range cards {
		card := &cards[i]
		set := strings.ToLower(card.SetCode)

		names := append([]string{card.Name}, card.FaceNames()...)
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, ok := l.byName[name]; !ok {
				l.byName[name] = card
			}
			if key := (nameSetKey{name, set}); l.byNameSet[key] == nil {
				l.byNameSet[key] = card
			}
		}

		if card.CollectorNumber != "" {
			l.byPrinting[printingKey{set, strings.ToLower(card.CollectorNumber)}] = card
		}
	}

	return l
}

// match finds the card for an item: exact printing first, then name.
func (l *lookup) match(item *models.LineItem) *scryfall.Card {
	set := strings.ToLower(item.SetCode)

	if item.SetCode != "" && item.CollectorNumber != "" {
		if card := l.byPrinting[printingKey{set, strings.ToLower(item.CollectorNumber)}]; card != nil {
			return card
		}
	}

	for _, name := range []string{item.Name, LookupName(item.Name)} {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if set != "" {
			if card := l.byNameSet[nameSetKey{name, set}]; card != nil {
				return card
			}
		}
		if card := l.byName[name]; card != nil {
			return card
		}
	}

	return nil
}
