package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/api/handlers"
	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/gate"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/importer"
	"github.com/ramonehamilton/mtg-binder/internal/importer/resolver"
	"github.com/ramonehamilton/mtg-binder/internal/metrics"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
)

// fakeCatalog serves a fixed card list for both batch and single lookups.
type fakeCatalog struct {
	cards []scryfall.Card
}

func (c *fakeCatalog) find(match func(scryfall.Card) bool) *scryfall.Card {
	for i := range c.cards {
		if match(c.cards[i]) {
			card := c.cards[i]
			return &card
		}
	}
	return nil
}

func (c *fakeCatalog) Collection(_ context.Context, ids []scryfall.CardIdentifier) (*scryfall.CollectionResponse, error) {
	resp := &scryfall.CollectionResponse{Object: "list"}
	for _, id := range ids {
		card := c.find(func(card scryfall.Card) bool {
			return (id.ID != "" && id.ID == card.ID) || (id.Name != "" && strings.EqualFold(id.Name, card.Name))
		})
		if card == nil {
			resp.NotFound = append(resp.NotFound, id)
			continue
		}
		resp.Data = append(resp.Data, *card)
	}
	return resp, nil
}

func (c *fakeCatalog) Autocomplete(_ context.Context, query string) ([]string, error) {
	var names []string
	for _, card := range c.cards {
		if strings.HasPrefix(strings.ToLower(card.Name), strings.ToLower(query)) {
			names = append(names, card.Name)
		}
	}
	return names, nil
}

func (c *fakeCatalog) GetCard(_ context.Context, id string) (*scryfall.Card, error) {
	if id == "slow" {
		return nil, &gate.TimeoutError{Op: "GetCard", Timeout: 30 * time.Second}
	}
	if card := c.find(func(card scryfall.Card) bool { return card.ID == id }); card != nil {
		return card, nil
	}
	return nil, &scryfall.NotFoundError{URL: "/cards/" + id}
}

func (c *fakeCatalog) GetCardNamed(_ context.Context, name string, _ bool) (*scryfall.Card, error) {
	if card := c.find(func(card scryfall.Card) bool { return strings.EqualFold(card.Name, name) }); card != nil {
		return card, nil
	}
	return nil, &scryfall.NotFoundError{URL: "/cards/named"}
}

func (c *fakeCatalog) SearchCards(_ context.Context, query string, _ int) (*scryfall.SearchResult, error) {
	res := &scryfall.SearchResult{Object: "list", Data: []scryfall.Card{}}
	for _, card := range c.cards {
		if strings.Contains(strings.ToLower(card.Name), strings.ToLower(query)) {
			res.Data = append(res.Data, card)
		}
	}
	res.TotalCards = len(res.Data)
	return res, nil
}

type testEnv struct {
	server  *Server
	store   *storage.Service
	imports *importer.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := storage.DefaultConfig(":memory:")
	cfg.AutoMigrate = true
	db, err := storage.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewService(db)

	cat := &fakeCatalog{cards: []scryfall.Card{
		{ID: "bolt", Name: "Lightning Bolt", SetCode: "lea", CollectorNumber: "161", Rarity: "common",
			Colors: []string{"R"}, Legalities: map[string]string{"standard": "legal"}},
		{ID: "forest", Name: "Forest", SetCode: "lea", CollectorNumber: "294", Rarity: "common",
			TypeLine: "Basic Land - Forest", Legalities: map[string]string{"standard": "legal"}},
	}}
	res := resolver.New(cat, 0)
	dispatcher := events.NewEventDispatcher()
	imports := importer.NewService(res, store.Entries, dispatcher, importer.DefaultConfig())
	t.Cleanup(imports.Close)

	server := NewServer(DefaultConfig(), &Services{
		Store:    store,
		Imports:  imports,
		Resolver: res,
		Catalog:  cat,
		Metrics:  metrics.NewCatalog(),
		Events:   dispatcher,
	})
	return &testEnv{server: server, store: store, imports: imports}
}

// do sends a request as userID (0 for anonymous) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, userID int, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set(handlers.UserHeader, strconv.Itoa(userID))
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}

func (e *testEnv) createUser(t *testing.T, name string) int {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/users", 0, map[string]string{"username": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user struct {
		ID int `json:"id"`
	}
	decodeData(t, rec, &user)
	return user.ID
}

func (e *testEnv) createDeck(t *testing.T, userID int) int {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/collections", userID, map[string]string{
		"name": "Burn", "type": "DECK", "deck_type": "standard",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c struct {
		ID       int    `json:"id"`
		DeckType string `json:"deck_type"`
	}
	decodeData(t, rec, &c)
	require.Equal(t, "STANDARD", c.DeckType)
	return c.ID
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestNewServer_NilArguments(t *testing.T) {
	server := NewServer(nil, nil)
	require.NotNil(t, server)
	assert.Equal(t, 8080, server.Port())
	assert.NotNil(t, server.WebSocketHub())
	assert.NotNil(t, server.NewWebSocketObserver(false))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/collections", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ShutdownNotStarted(t *testing.T) {
	server := NewServer(nil, nil)
	assert.NoError(t, server.Shutdown(context.Background()))
}

func TestServer_CheckOrigin(t *testing.T) {
	server := NewServer(&Config{Port: 1, AllowedOrigins: []string{"http://localhost:*", "https://binder.example"}}, nil)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://binder.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, server.checkOrigin(req), tt.origin)
	}
}

func TestJSONContentTypeMiddleware(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"username":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRequireUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/collections", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCollections_CRUDAndAccess(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	deckID := env.createDeck(t, alice)
	path := fmt.Sprintf("/api/v1/collections/%d", deckID)

	rec := env.do(t, http.MethodGet, "/api/v1/collections", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	decodeData(t, rec, &list)
	assert.Len(t, list, 1)

	// Private collections are hidden from other users.
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/collections/9999", alice, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/collections/abc", alice, nil).Code)

	// A deck type on a trade binder is a validation error.
	rec = env.do(t, http.MethodPost, "/api/v1/collections", alice, map[string]string{
		"name": "Binder", "type": "TRADE_BINDER", "deck_type": "MODERN",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var invalid response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invalid))
	assert.Equal(t, "deck_type", invalid.Field)

	// Going invite-only assigns a slug; bob needs an invitation.
	rec = env.do(t, http.MethodPatch, path, alice, map[string]string{"visibility": "INVITE_ONLY"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var patched struct {
		ShareSlug *string `json:"share_slug"`
	}
	decodeData(t, rec, &patched)
	require.NotNil(t, patched.ShareSlug)

	shared := "/api/v1/shared/" + *patched.ShareSlug
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, shared, bob, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPatch, path, bob, map[string]string{"name": "mine"}).Code)

	rec = env.do(t, http.MethodPost, path+"/shares", alice, map[string]int{"user_id": bob})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, bob, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, shared, bob, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, shared, 0, nil).Code)

	rec = env.do(t, http.MethodGet, path+"/shares", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shares []map[string]interface{}
	decodeData(t, rec, &shares)
	assert.Len(t, shares, 1)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, fmt.Sprintf("%s/shares/%d", path, bob), alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, bob, nil).Code)

	// Back to private keeps the slug but closes the link.
	rec = env.do(t, http.MethodPatch, path, alice, map[string]string{"visibility": "PRIVATE"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, shared, alice, nil).Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, alice, nil).Code)
}

func TestEntries_CRUD(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	deckID := env.createDeck(t, alice)
	path := fmt.Sprintf("/api/v1/collections/%d/entries", deckID)

	rec := env.do(t, http.MethodPost, path, alice, map[string]interface{}{"scryfall_id": "bolt", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry struct {
		ID        int    `json:"id"`
		Condition string `json:"condition"`
		Finish    string `json:"finish"`
	}
	decodeData(t, rec, &entry)
	assert.Equal(t, "NM", entry.Condition)
	assert.Equal(t, "nonfoil", entry.Finish)

	rec = env.do(t, http.MethodPost, path, alice, map[string]interface{}{"scryfall_id": "bolt", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, path+"/bulk", alice, map[string]interface{}{
		"entries": []map[string]interface{}{
			{"scryfall_id": "forest", "quantity": 10},
			{"scryfall_id": "bolt", "quantity": 1, "finish": "foil"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bulk handlers.BulkCreateResponse
	decodeData(t, rec, &bulk)
	assert.Equal(t, 2, bulk.Imported)

	entryPath := fmt.Sprintf("%s/%d", path, entry.ID)
	rec = env.do(t, http.MethodPatch, entryPath, alice, map[string]interface{}{"quantity": 4, "condition": "LP"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPatch, entryPath, alice, map[string]interface{}{"quantity": 0})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, entryPath, alice, nil).Code)

	rec = env.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]interface{}
	decodeData(t, rec, &entries)
	assert.Len(t, entries, 2)
}

func TestImport_DecklistJobAndInsights(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	deckID := env.createDeck(t, alice)
	base := fmt.Sprintf("/api/v1/collections/%d", deckID)

	rec := env.do(t, http.MethodPost, base+"/import/decklist", alice, map[string]string{
		"text": "Deck\n4 Lightning Bolt\n20 Forest\n1 Lightnig Blot\n",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var snap importer.Snapshot
	decodeData(t, rec, &snap)

	job, err := env.imports.Get(snap.ID)
	require.NoError(t, err)
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("import did not finish")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/imports/"+snap.ID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &snap)
	assert.Equal(t, importer.JobCompleted, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 2, snap.Result.Imported)
	require.Len(t, snap.Result.Unmatched, 1)

	// Finished jobs cannot be cancelled; other users cannot see them.
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/v1/imports/"+snap.ID, alice, nil).Code)
	bob := env.createUser(t, "bob")
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/v1/imports/"+snap.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/imports/missing", alice, nil).Code)

	rec = env.do(t, http.MethodGet, base+"/validate", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report struct {
		Status string `json:"status"`
		Result struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Type string `json:"type"`
			} `json:"errors"`
		} `json:"result"`
	}
	decodeData(t, rec, &report)
	assert.Equal(t, "evaluated", report.Status)
	assert.False(t, report.Result.Valid)
	var types []string
	for _, issue := range report.Result.Errors {
		types = append(types, issue.Type)
	}
	assert.Contains(t, types, "deck_size")

	rec = env.do(t, http.MethodGet, base+"/stats", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats struct {
		Period     string `json:"period"`
		TotalCards int    `json:"total_cards"`
	}
	decodeData(t, rec, &stats)
	assert.Equal(t, "all time", stats.Period)
	assert.Equal(t, 24, stats.TotalCards)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, base+"/stats?period=fortnight", alice, nil).Code)

	rec = env.do(t, http.MethodGet, base+"/export?format=text", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lightning Bolt")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Burn.txt")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, base+"/export?format=xml", alice, nil).Code)
}

func TestImport_CSVNeedsMappingAndPreview(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	deckID := env.createDeck(t, alice)
	base := fmt.Sprintf("/api/v1/collections/%d", deckID)

	rec := env.do(t, http.MethodPost, base+"/import/csv", alice, map[string]string{
		"text": "Anzahl,Karte\n4,Lightning Bolt\n",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap importer.Snapshot
	decodeData(t, rec, &snap)
	assert.Equal(t, importer.JobNeedsMapping, snap.Status)
	require.NotNil(t, snap.Parsed)
	assert.Equal(t, []string{"Anzahl", "Karte"}, snap.Parsed.Headers)

	rec = env.do(t, http.MethodPost, base+"/import/preview", alice, map[string]interface{}{
		"kind":    "csv",
		"text":    "Anzahl,Karte\n4,Lightning Bolt\n",
		"mapping": map[string]int{"quantity": 0, "name": 1},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var preview struct {
		Entries []struct {
			CatalogID string `json:"scryfall_id"`
			Quantity  int    `json:"quantity"`
		} `json:"entries"`
	}
	decodeData(t, rec, &preview)
	require.Len(t, preview.Entries, 1)
	assert.Equal(t, "bolt", preview.Entries[0].CatalogID)
	assert.Equal(t, 4, preview.Entries[0].Quantity)

	// Preview saves nothing.
	entries, err := env.store.Entries.ListByCollection(context.Background(), deckID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, base+"/import/csv", alice, map[string]string{"text": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, base+"/import/preview", alice, map[string]string{"text": "x", "kind": "xml"}).Code)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/catalog/cards/bolt", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var card scryfall.Card
	decodeData(t, rec, &card)
	assert.Equal(t, "Lightning Bolt", card.Name)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/catalog/cards/nope", 0, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/v1/catalog/cards/slow", 0, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/catalog/search", 0, nil).Code)

	rec = env.do(t, http.MethodGet, "/api/v1/catalog/search?q=bolt", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)

	rec = env.do(t, http.MethodGet, "/api/v1/catalog/suggest?name=Lightnig+Bolt", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []struct {
		Name string `json:"name"`
	}
	decodeData(t, rec, &matches)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Lightning Bolt", matches[0].Name)
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/status", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status handlers.Status
	decodeData(t, rec, &status)
	assert.Equal(t, "mtg-binder-api", status.Service)
	require.NotNil(t, status.Catalog)
}
