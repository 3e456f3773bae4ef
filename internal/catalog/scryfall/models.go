package scryfall

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Legality values reported by the catalog.
const (
	Legal      = "legal"
	NotLegal   = "not_legal"
	Restricted = "restricted"
	Banned     = "banned"
)

// FaceSeparator joins the face names of multi-faced cards.
const FaceSeparator = " // "

// Card represents a Magic card from Scryfall.
type Card struct {
	// Core fields
	ID       string `json:"id"`
	OracleID string `json:"oracle_id"`

	// Card details
	Name          string     `json:"name"`
	Lang          string     `json:"lang"`
	Layout        string     `json:"layout"`
	ImageURIs     *ImageURIs `json:"image_uris,omitempty"`
	ManaCost      string     `json:"mana_cost,omitempty"`
	CMC           float64    `json:"cmc"`
	TypeLine      string     `json:"type_line"`
	OracleText    string     `json:"oracle_text,omitempty"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity"`

	// Print details
	SetCode         string `json:"set"`
	SetName         string `json:"set_name"`
	CollectorNumber string `json:"collector_number"`
	Rarity          string `json:"rarity"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`

	// Legalities maps a format key ("standard", "commander", ...) to a
	// legality value.
	Legalities map[string]string `json:"legalities"`

	Prices Prices `json:"prices"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost,omitempty"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
	PNG    string `json:"png"`
}

// Prices represents the prices of a card in various currencies.
type Prices struct {
	USD       *string `json:"usd,omitempty"`
	USDFoil   *string `json:"usd_foil,omitempty"`
	USDEtched *string `json:"usd_etched,omitempty"`
	EUR       *string `json:"eur,omitempty"`
	TIX       *string `json:"tix,omitempty"`
}

// FaceNames returns the names of every face, or nil for single-faced cards.
func (c *Card) FaceNames() []string {
	if len(c.CardFaces) > 0 {
		names := make([]string, 0, len(c.CardFaces))
		for _, f := range c.CardFaces {
			if f.Name != "" {
				names = append(names, f.Name)
			}
		}
		return names
	}
	if strings.Contains(c.Name, FaceSeparator) {
		return strings.Split(c.Name, FaceSeparator)
	}
	return nil
}

// Legality returns the legality value for a format key, or NotLegal when the
// catalog did not report one.
func (c *Card) Legality(format string) string {
	if v, ok := c.Legalities[format]; ok && v != "" {
		return v
	}
	return NotLegal
}

// IsBasicLand reports whether the card is a basic land by type line or name.
func (c *Card) IsBasicLand() bool {
	if strings.Contains(c.TypeLine, "Basic") && strings.Contains(c.TypeLine, "Land") {
		return true
	}
	return IsBasicLandName(c.Name)
}

// PriceUSD returns the market price for a finish ("foil", "etched", or
// anything else for nonfoil), or nil when unpriced.
func (c *Card) PriceUSD(finish string) *float64 {
	var raw *string
	switch finish {
	case "foil":
		raw = c.Prices.USDFoil
	case "etched":
		raw = c.Prices.USDEtched
	default:
		raw = c.Prices.USD
	}
	if raw == nil || *raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

var basicLandNames = map[string]bool{
	"plains":                true,
	"island":                true,
	"swamp":                 true,
	"mountain":              true,
	"forest":                true,
	"wastes":                true,
	"snow-covered plains":   true,
	"snow-covered island":   true,
	"snow-covered swamp":    true,
	"snow-covered mountain": true,
	"snow-covered forest":   true,
	"snow-covered wastes":   true,
}

// IsBasicLandName reports whether name is one of the basic land names.
func IsBasicLandName(name string) bool {
	return basicLandNames[strings.ToLower(strings.TrimSpace(name))]
}

// SearchResult represents search results from Scryfall.
type SearchResult struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []Card `json:"data"`
}

// Catalog is a list of strings such as autocomplete results.
type Catalog struct {
	Object      string   `json:"object"`
	TotalValues int      `json:"total_values"`
	Data        []string `json:"data"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if the error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
