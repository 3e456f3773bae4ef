package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/fuzzy"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
)

// searchPageSize is the catalog's fixed search page length.
const searchPageSize = 175

// CardCatalog is the catalog surface passed through to clients.
type CardCatalog interface {
	GetCard(ctx context.Context, id string) (*scryfall.Card, error)
	GetCardNamed(ctx context.Context, name string, fuzzy bool) (*scryfall.Card, error)
	SearchCards(ctx context.Context, query string, page int) (*scryfall.SearchResult, error)
	Autocomplete(ctx context.Context, query string) ([]string, error)
}

// Suggester ranks likely card names for a misspelled one.
type Suggester interface {
	Suggest(ctx context.Context, name string, limit int) ([]fuzzy.Match, error)
}

// CardHandler handles catalog lookups.
type CardHandler struct {
	catalog   CardCatalog
	suggester Suggester
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(catalog CardCatalog, suggester Suggester) *CardHandler {
	return &CardHandler{catalog: catalog, suggester: suggester}
}

// SearchCards runs a catalog search query (?q=, ?page=).
func (h *CardHandler) SearchCards(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		response.BadRequest(w, errors.New("query parameter q is required"))
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	result, err := h.catalog.SearchCards(r.Context(), query, page)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Paginated(w, result.Data, page, searchPageSize, result.TotalCards)
}

// GetCard returns a card by catalog ID.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		response.BadRequest(w, errors.New("card ID is required"))
		return
	}

	card, err := h.catalog.GetCard(r.Context(), cardID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, card)
}

// GetCardNamed looks a card up by exact name, or fuzzily with ?fuzzy=true.
func (h *CardHandler) GetCardNamed(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		response.BadRequest(w, errors.New("query parameter name is required"))
		return
	}
	fuzzyMatch, _ := strconv.ParseBool(r.URL.Query().Get("fuzzy"))

	card, err := h.catalog.GetCardNamed(r.Context(), name, fuzzyMatch)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, card)
}

// Autocomplete returns card names starting with ?q=.
func (h *CardHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		response.Success(w, []string{})
		return
	}

	names, err := h.catalog.Autocomplete(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, names)
}

// Suggest answers "did you mean" for an unmatched name (?name=, ?limit=).
func (h *CardHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		response.BadRequest(w, errors.New("query parameter name is required"))
		return
	}
	limit := 5
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 20 {
		limit = l
	}

	matches, err := h.suggester.Suggest(r.Context(), name, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []fuzzy.Match{}
	}
	response.Success(w, matches)
}
