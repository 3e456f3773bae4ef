package models

import "time"

// User owns collections. Credentials live with the auth service.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Collection is a trade binder or a deck.
type Collection struct {
	ID          int            `json:"id"`
	UserID      int            `json:"user_id"`
	Name        string         `json:"name"`
	Type        CollectionType `json:"type"`
	DeckType    *DeckType      `json:"deck_type,omitempty"` // Required iff Type is DECK
	Description *string        `json:"description,omitempty"`
	Visibility  Visibility     `json:"visibility"`
	ShareSlug   *string        `json:"share_slug,omitempty"` // Assigned lazily once not PRIVATE
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsDeck reports whether the collection is a deck.
func (c *Collection) IsDeck() bool {
	return c.Type == CollectionTypeDeck
}

// CollectionEntry is a persisted card line in a collection.
// Quantity is always at least 1; removing a card deletes the row.
type CollectionEntry struct {
	ID               int       `json:"id"`
	CollectionID     int       `json:"collection_id"`
	CatalogID        string    `json:"scryfall_id"`
	Quantity         int       `json:"quantity"`
	Condition        Condition `json:"condition"`
	Finish           Finish    `json:"finish"`
	PurchasePrice    *float64  `json:"purchase_price,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	IsCommander      bool      `json:"is_commander"`
	IsSideboard      bool      `json:"is_sideboard"`
	IsSignatureSpell bool      `json:"is_signature_spell"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CollectionShare grants a user read access to an invite-only collection.
type CollectionShare struct {
	CollectionID int       `json:"collection_id"`
	UserID       int       `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}
