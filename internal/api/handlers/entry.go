package handlers

import (
	"net/http"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// EntryHandler handles the card entries of a collection.
type EntryHandler struct {
	store      *storage.Service
	dispatcher *events.EventDispatcher
}

// NewEntryHandler creates a new EntryHandler. dispatcher may be nil.
func NewEntryHandler(store *storage.Service, dispatcher *events.EventDispatcher) *EntryHandler {
	return &EntryHandler{store: store, dispatcher: dispatcher}
}

// BulkCreateRequest is the body of POST /collections/{id}/entries/bulk.
type BulkCreateRequest struct {
	Entries []models.AggregatedEntry `json:"entries"`
}

// BulkCreateResponse reports a bulk create.
type BulkCreateResponse struct {
	Imported int                       `json:"imported"`
	Entries  []*models.CollectionEntry `json:"entries"`
}

// ListEntries lists the entries of a readable collection.
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.ReadableCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.store.Entries.ListByCollection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, entries)
}

// CreateEntry adds one validated entry.
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.AggregatedEntry
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.store.Entries.Create(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishUpdate(r, id, 1)
	response.Created(w, entry)
}

// BulkCreate inserts up to repository.MaxBulkEntries entries in one transaction.
func (h *EntryHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req BulkCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.store.Entries.BulkCreate(r.Context(), id, req.Entries)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishUpdate(r, id, len(created))
	response.Created(w, BulkCreateResponse{Imported: len(created), Entries: created})
}

// UpdateEntry patches an entry. Setting quantity to 0 deletes it and answers 204.
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	entryID, err := pathInt(r, "entryID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req repository.EntryUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.store.UpdateEntry(r.Context(), id, entryID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		response.NoContent(w)
		return
	}
	response.Success(w, entry)
}

// DeleteEntry removes an entry.
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	entryID, err := pathInt(r, "entryID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.DeleteEntry(r.Context(), id, entryID); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *EntryHandler) publishUpdate(r *http.Request, collectionID, added int) {
	h.dispatcher.Dispatch(events.NewTypedEvent(events.TypeCollectionUpdated, events.CollectionUpdatedEvent{
		CollectionID: collectionID,
		EntriesAdded: added,
	}, r.Context()))
}
