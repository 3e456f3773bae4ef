// Package importer runs decklist and CSV imports into a collection:
// parse, resolve against the catalog, aggregate, then bulk-create in batches.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/importer/csvimport"
	"github.com/ramonehamilton/mtg-binder/internal/importer/decklist"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Kind is the input format of an import.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindDecklist Kind = "decklist"
	KindCSV      Kind = "csv"
)

// ErrEmptyInput is returned when there is nothing to parse.
var ErrEmptyInput = errors.New("import input is empty")

// ErrUnknownKind is returned for a Kind other than auto, decklist or csv.
var ErrUnknownKind = errors.New("unknown import kind")

// Request describes one import.
type Request struct {
	CollectionID int               `json:"collection_id"`
	Kind         Kind              `json:"kind"`
	Text         string            `json:"text"`
	Mapping      csvimport.Mapping `json:"mapping,omitempty"`
	// Skip lists raw indexes the user chose to skip after a preview.
	Skip []int `json:"skip,omitempty"`
}

// Parsed is the parser output for a request.
type Parsed struct {
	Kind     Kind                `json:"kind"`
	Items    []*models.LineItem  `json:"items"`
	Sections []*decklist.Section `json:"sections,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`

	// CSV only.
	Format       csvimport.Format  `json:"format,omitempty"`
	Headers      []string          `json:"headers,omitempty"`
	Mapping      csvimport.Mapping `json:"mapping,omitempty"`
	NeedsMapping bool              `json:"needs_mapping,omitempty"`
}

// Parse runs the parser matching req.Kind. KindAuto picks the decklist parser
// when the text looks like a decklist and the CSV parser otherwise. A
// tab-separated paste whose header names a card column is always CSV, since
// its rows ("4\tLightning Bolt\tlea") also read as decklist lines.
func Parse(req Request) (*Parsed, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}

	kind := req.Kind
	switch kind {
	case "", KindAuto:
		kind = KindCSV
		if !isTabSeparatedExport(req.Text) && decklist.IsDecklistText(req.Text) {
			kind = KindDecklist
		}
	case KindDecklist, KindCSV:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, req.Kind)
	}

	if kind == KindDecklist {
		res := decklist.Parse(req.Text)
		return &Parsed{
			Kind:     kind,
			Items:    res.AllCards,
			Sections: res.Sections,
			Warnings: res.Warnings,
		}, nil
	}

	res := csvimport.Parse(req.Text, csvimport.Options{Mapping: req.Mapping})
	return &Parsed{
		Kind:         kind,
		Items:        res.Items,
		Format:       res.Format,
		Headers:      res.Headers,
		Mapping:      res.Mapping,
		NeedsMapping: res.NeedsMapping,
	}, nil
}

func isTabSeparatedExport(text string) bool {
	if csvimport.DetectDelimiter(text) != '\t' {
		return false
	}
	rows := csvimport.Tokenize(text, '\t')
	if len(rows) == 0 {
		return false
	}
	_, ok := csvimport.DetectMapping(rows[0])[csvimport.FieldName]
	return ok
}
