// Package csvimport reads collection exports from third-party tools
// (Deckbox, Moxfield, or any CSV with recognizable headers) into line items.
package csvimport

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// Format is the tool a CSV export most likely came from.
type Format string

const (
	FormatDeckbox  Format = "deckbox"
	FormatMoxfield Format = "moxfield"
	FormatUnknown  Format = "unknown"
)

// Field is a line item attribute a CSV column can feed.
type Field string

const (
	FieldQuantity        Field = "quantity"
	FieldName            Field = "name"
	FieldSetCode         Field = "set_code"
	FieldCollectorNumber Field = "collector_number"
	FieldCondition       Field = "condition"
	FieldPurchasePrice   Field = "purchase_price"
	FieldFoil            Field = "foil"
	FieldNotes           Field = "notes"
	FieldCommander       Field = "is_commander"
	FieldSideboard       Field = "is_sideboard"
	FieldSignatureSpell  Field = "is_signature_spell"
)

// Mapping assigns fields to zero-based column indexes.
type Mapping map[Field]int

// headerSynonyms lists accepted lowercase header names per field.
var headerSynonyms = []struct {
	field Field
	names []string
}{
	{FieldQuantity, []string{"count", "qty", "quantity"}},
	{FieldName, []string{"name", "card name", "card"}},
	{FieldSetCode, []string{"edition", "set", "set code", "edition code"}},
	{FieldCollectorNumber, []string{"collector number", "card number", "collector_number", "number"}},
	{FieldCondition, []string{"condition"}},
	{FieldPurchasePrice, []string{"purchase price", "price", "my price"}},
	{FieldFoil, []string{"foil", "finish"}},
	{FieldNotes, []string{"notes", "note"}},
	{FieldCommander, []string{"commander", "is commander", "is_commander"}},
	{FieldSideboard, []string{"sideboard", "is sideboard", "is_sideboard"}},
	{FieldSignatureSpell, []string{"signature spell", "is signature spell", "is_signature_spell"}},
}

var (
	setCodeRegex    = regexp.MustCompile(`^[a-z0-9]{2,6}$`)
	priceCharsRegex = regexp.MustCompile(`[^0-9.]`)
)

// DetectMapping maps header names to fields using the synonym table.
// When several columns match a field, the leftmost wins.
func DetectMapping(headers []string) Mapping {
	mapping := make(Mapping)
	for i, header := range headers {
		name := normalizeHeader(header)
		for _, syn := range headerSynonyms {
			if _, taken := mapping[syn.field]; taken {
				continue
			}
			for _, candidate := range syn.names {
				if name == candidate {
					mapping[syn.field] = i
					break
				}
			}
		}
	}
	return mapping
}

// DetectFormat guesses the exporting tool from header presence.
// Moxfield exports also carry "Tradelist Count", so its markers are checked first.
func DetectFormat(headers []string) Format {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[normalizeHeader(h)] = true
	}

	switch {
	case present["purchase price"] || present["collector number"]:
		return FormatMoxfield
	case present["tradelist count"]:
		return FormatDeckbox
	default:
		return FormatUnknown
	}
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Options control Parse.
type Options struct {
	// Mapping overrides header detection. Required when the format is unknown.
	Mapping Mapping
}

// Result is the outcome of parsing a CSV export.
type Result struct {
	Format  Format             `json:"format"`
	Headers []string           `json:"headers"`
	Mapping Mapping            `json:"mapping"`
	Items   []*models.LineItem `json:"items"`

	// NeedsMapping is set when the format was not recognized, no explicit
	// mapping was given and the headers do not name a card column. Mapping
	// then holds the best-effort suggestion and Items is empty.
	NeedsMapping bool `json:"needs_mapping"`
}

// Parse tokenizes input, resolves the column mapping and converts rows to line items.
func Parse(input string, opts Options) *Result {
	rows := Tokenize(input, DetectDelimiter(input))
	result := &Result{
		Format: FormatUnknown,
		Items:  make([]*models.LineItem, 0),
	}
	if len(rows) == 0 {
		result.Mapping = Mapping{}
		return result
	}

	result.Headers = rows[0]
	result.Format = DetectFormat(result.Headers)

	if opts.Mapping != nil {
		result.Mapping = opts.Mapping
	} else {
		result.Mapping = DetectMapping(result.Headers)
		if _, ok := result.Mapping[FieldName]; !ok && result.Format == FormatUnknown {
			result.NeedsMapping = true
			return result
		}
	}

	for i, row := range rows[1:] {
		if item, ok := mapRow(i+1, row, result.Mapping); ok {
			result.Items = append(result.Items, item)
		}
	}
	return result
}

// mapRow converts one data row. Rows without a name are dropped.
func mapRow(rawIndex int, row []string, mapping Mapping) (*models.LineItem, bool) {
	get := func(f Field) string {
		idx, ok := mapping[f]
		if !ok || idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	name := get(FieldName)
	if name == "" {
		return nil, false
	}

	item := models.NewLineItem(rawIndex, name, parseQuantity(get(FieldQuantity)))
	item.SetCode = normalizeSetCode(get(FieldSetCode))
	item.CollectorNumber = get(FieldCollectorNumber)
	item.Condition = models.NormalizeCondition(get(FieldCondition))
	item.Finish = models.NormalizeFinish(get(FieldFoil))
	item.PurchasePrice = ParsePrice(get(FieldPurchasePrice))
	if notes := get(FieldNotes); notes != "" {
		item.Notes = &notes
	}
	item.IsCommander = parseBool(get(FieldCommander))
	item.IsSideboard = parseBool(get(FieldSideboard))
	item.IsSignatureSpell = parseBool(get(FieldSignatureSpell))

	return item, true
}

// parseQuantity returns 1 for missing, unparsable or non-positive values.
func parseQuantity(s string) int {
	q, err := strconv.Atoi(s)
	if err != nil || q < 1 {
		return 1
	}
	return q
}

// normalizeSetCode lowercases s and discards values that are set names rather than codes
// (Deckbox's "Edition" column holds the full set name).
func normalizeSetCode(s string) string {
	code := strings.ToLower(s)
	if !setCodeRegex.MatchString(code) {
		return ""
	}
	return code
}

// ParsePrice strips everything but digits and dots. Empty, zero and
// unparsable values yield nil.
func ParsePrice(s string) *float64 {
	cleaned := priceCharsRegex.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price == 0 {
		return nil
	}
	return &price
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "x":
		return true
	}
	return false
}
