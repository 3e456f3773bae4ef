// Package decklist parses plain-text decklists in the MTGA, Moxfield and
// Archidekt export styles.
package decklist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

var (
	// "4 Lightning Bolt", "4x Lightning Bolt (LEA) 161"
	// Group 1: quantity, Group 2: name, Group 3: set code, Group 4: collector number
	cardLineRegex = regexp.MustCompile(`^(\d+)x?\s+(.+?)(?:\s+\(([A-Za-z0-9]+)\)(?:\s+(\S+))?)?$`)

	// Trailing Archidekt annotations: [Category], ^Label^ and the *F* foil marker.
	annotationRegex = regexp.MustCompile(`\s*(\[[^\]]*\]|\^[^^]*\^|\*[Ff]\*)$`)

	looseCardLineRegex = regexp.MustCompile(`^\d+x?\s+\S`)
)

// sectionHeaders maps lowercase header lines to the section they open.
var sectionHeaders = map[string]models.Section{
	"commander":   models.SectionCommander,
	"companion":   models.SectionCompanion,
	"deck":        models.SectionDeck,
	"mainboard":   models.SectionDeck,
	"main":        models.SectionDeck,
	"sideboard":   models.SectionSideboard,
	"maybeboard":  models.SectionMaybeboard,
	"considering": models.SectionMaybeboard,
}

// Section is a named group of cards in first-seen order.
type Section struct {
	Name  models.Section     `json:"name"`
	Cards []*models.LineItem `json:"cards"`
}

// Result is the outcome of parsing a decklist.
type Result struct {
	Sections []*Section         `json:"sections"`
	AllCards []*models.LineItem `json:"all_cards"`
	Warnings []string           `json:"warnings,omitempty"`
}

// Section returns the named section, or nil if no card was read into it.
func (r *Result) Section(name models.Section) *Section {
	for _, s := range r.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Parse reads a decklist. It never fails: lines it cannot read are reported
// as warnings and skipped.
func Parse(input string) *Result {
	result := &Result{
		Sections: make([]*Section, 0),
		AllCards: make([]*models.LineItem, 0),
	}
	index := make(map[models.Section]*Section)
	current := models.SectionDeck

	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if section, ok := parseSectionHeader(line); ok {
			current = section
			continue
		}

		item, ok := parseCardLine(i, line)
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Line %d: Could not parse '%s'", i+1, line))
			continue
		}
		item.Section = current

		section, exists := index[current]
		if !exists {
			section = &Section{Name: current, Cards: make([]*models.LineItem, 0)}
			index[current] = section
			result.Sections = append(result.Sections, section)
		}
		section.Cards = append(section.Cards, item)
		result.AllCards = append(result.AllCards, item)
	}

	return result
}

// parseSectionHeader recognizes a standalone section header, with or without a trailing colon.
func parseSectionHeader(line string) (models.Section, bool) {
	key := strings.ToLower(strings.TrimSuffix(line, ":"))
	section, ok := sectionHeaders[strings.TrimSpace(key)]
	return section, ok
}

// parseCardLine parses "<qty>[x] <name>[ (<set>) [<number>]]" after stripping annotations.
func parseCardLine(rawIndex int, line string) (*models.LineItem, bool) {
	stripped, foil := stripAnnotations(line)

	matches := cardLineRegex.FindStringSubmatch(stripped)
	if matches == nil {
		return nil, false
	}

	quantity, err := strconv.Atoi(matches[1])
	if err != nil || quantity < 1 {
		return nil, false
	}

	name := strings.TrimSpace(matches[2])
	if name == "" {
		return nil, false
	}

	item := models.NewLineItem(rawIndex, name, quantity)
	if matches[3] != "" {
		item.SetCode = strings.ToLower(matches[3])
	}
	if matches[4] != "" {
		item.CollectorNumber = matches[4]
	}
	if foil {
		item.Finish = models.FinishFoil
	}
	return item, true
}

// stripAnnotations removes trailing annotations until none remain, reporting
// whether a foil marker was among them.
func stripAnnotations(line string) (string, bool) {
	foil := false
	for {
		loc := annotationRegex.FindStringSubmatchIndex(line)
		if loc == nil {
			return strings.TrimSpace(line), foil
		}
		if strings.EqualFold(line[loc[2]:loc[3]], "*F*") {
			foil = true
		}
		line = line[:loc[0]]
	}
}

// IsDecklistText reports whether input looks like a decklist rather than CSV:
// at least two non-blank, non-comment lines start with a quantity.
func IsDecklistText(input string) bool {
	count := 0
	for _, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if looseCardLineRegex.MatchString(line) {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}
