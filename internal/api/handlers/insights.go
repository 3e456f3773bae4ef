package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/deckrules"
	"github.com/ramonehamilton/mtg-binder/internal/export"
	"github.com/ramonehamilton/mtg-binder/internal/stats"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CardLookup loads catalog records for stored entries.
type CardLookup interface {
	FetchByIDs(ctx context.Context, ids []string) (map[string]*scryfall.Card, error)
}

// InsightsHandler serves validation, statistics and exports of a collection.
type InsightsHandler struct {
	store *storage.Service
	cards CardLookup
	now   func() time.Time
}

// NewInsightsHandler creates a new InsightsHandler.
func NewInsightsHandler(store *storage.Service, cards CardLookup) *InsightsHandler {
	return &InsightsHandler{store: store, cards: cards, now: time.Now}
}

// StatsResponse wraps collection statistics with the period they cover.
type StatsResponse struct {
	Period string `json:"period"`
	*stats.CollectionStats
}

// loaded is a readable collection with its entries and catalog records.
type loaded struct {
	collection *models.Collection
	entries    []models.CollectionEntry
	cards      map[string]*scryfall.Card
}

func (h *InsightsHandler) load(r *http.Request) (*loaded, error) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		return nil, err
	}
	c, err := h.store.ReadableCollection(r.Context(), id, UserID(r.Context()))
	if err != nil {
		return nil, err
	}
	rows, err := h.store.Entries.ListByCollection(r.Context(), id)
	if err != nil {
		return nil, err
	}

	l := &loaded{collection: c, entries: make([]models.CollectionEntry, len(rows))}
	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, e := range rows {
		l.entries[i] = *e
		if !seen[e.CatalogID] {
			seen[e.CatalogID] = true
			ids = append(ids, e.CatalogID)
		}
	}
	if len(ids) == 0 {
		l.cards = map[string]*scryfall.Card{}
		return l, nil
	}

	l.cards, err = h.cards.FetchByIDs(r.Context(), ids)
	return l, err
}

// Validate checks a deck against its format rules.
func (h *InsightsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	l, err := h.load(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cards := make([]deckrules.DeckCard, len(l.entries))
	for i, e := range l.entries {
		cards[i] = deckrules.DeckCard{Entry: e, Card: l.cards[e.CatalogID]}
	}
	response.Success(w, deckrules.Evaluate(l.collection, cards))
}

// Stats summarizes a collection, optionally limited to entries added in ?period=.
// Cards the catalog could not return count toward missing_data.
func (h *InsightsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tr, err := stats.ParsePeriod(r.URL.Query().Get("period"), h.now())
	if err != nil {
		writeError(w, badRequestf("%v", err))
		return
	}

	l, err := h.load(r)
	if l == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		log.Printf("Stats for collection %d use partial catalog data: %v", l.collection.ID, err)
	}

	entries := stats.EntriesAddedIn(l.entries, tr)
	response.Success(w, StatsResponse{
		Period:          tr.FormatPeriod(),
		CollectionStats: stats.Calculate(entries, l.cards),
	})
}

// Export renders a collection as ?format=deckbox|moxfield|arena|text|json.
func (h *InsightsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, badRequestf("%v", err))
		return
	}

	l, err := h.load(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]export.Item, len(l.entries))
	for i, e := range l.entries {
		items[i] = export.Item{Entry: e, Card: l.cards[e.CatalogID]}
	}

	var buf bytes.Buffer
	skipped, err := export.Write(&buf, format, items)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(l.collection.Name, format)))
	w.Header().Set("X-Skipped-Entries", strconv.Itoa(skipped))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}
