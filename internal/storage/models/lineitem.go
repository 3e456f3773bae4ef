package models

// LineItem is one card line read from an import source (ParsedLineItem).
// Parsers create it; only the resolver and an explicit skip change Status
// and ResolvedCatalogID afterwards.
type LineItem struct {
	RawIndex          int        `json:"raw_index"`
	Name              string     `json:"name"`
	Quantity          int        `json:"quantity"`
	SetCode           string     `json:"set_code,omitempty"`
	CollectorNumber   string     `json:"collector_number,omitempty"`
	Condition         Condition  `json:"condition"`
	Finish            Finish     `json:"finish"`
	Notes             *string    `json:"notes,omitempty"`
	PurchasePrice     *float64   `json:"purchase_price,omitempty"`
	Section           Section    `json:"section"`
	Status            LineStatus `json:"status"`
	ResolvedCatalogID string     `json:"resolved_catalog_id,omitempty"`

	// Set by the CSV path only, which has no section concept.
	IsCommander      bool `json:"is_commander,omitempty"`
	IsSideboard      bool `json:"is_sideboard,omitempty"`
	IsSignatureSpell bool `json:"is_signature_spell,omitempty"`
}

// NewLineItem returns a pending item with the documented defaults.
func NewLineItem(rawIndex int, name string, quantity int) *LineItem {
	if quantity < 1 {
		quantity = 1
	}
	return &LineItem{
		RawIndex:  rawIndex,
		Name:      name,
		Quantity:  quantity,
		Condition: ConditionNearMint,
		Finish:    FinishNonfoil,
		Section:   SectionDeck,
		Status:    StatusPending,
	}
}

// Skip marks an unmatched item as skipped. It reports whether the transition happened.
func (li *LineItem) Skip() bool {
	if li.Status != StatusUnmatched {
		return false
	}
	li.Status = StatusSkipped
	return true
}

// NeedsResolution reports whether the resolver should look this item up.
func (li *LineItem) NeedsResolution() bool {
	return li.Status == StatusPending || li.Status == StatusUnmatched
}

// AggregatedEntry is one deduplicated entry ready for bulk creation.
type AggregatedEntry struct {
	CatalogID        string    `json:"scryfall_id"`
	Quantity         int       `json:"quantity"`
	Condition        Condition `json:"condition"`
	Finish           Finish    `json:"finish"`
	PurchasePrice    *float64  `json:"purchase_price,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	IsCommander      bool      `json:"is_commander"`
	IsSideboard      bool      `json:"is_sideboard"`
	IsSignatureSpell bool      `json:"is_signature_spell"`
}
