package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CollectionHandler handles users, collections and shares.
type CollectionHandler struct {
	store *storage.Service
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(store *storage.Service) *CollectionHandler {
	return &CollectionHandler{store: store}
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string `json:"username"`
}

// CreateUser registers a user.
func (h *CollectionHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		response.BadRequest(w, errors.New("username is required"))
		return
	}

	user, err := h.store.CreateUser(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, user)
}

// CreateCollectionRequest is the body of POST /collections.
type CreateCollectionRequest struct {
	Name        string                `json:"name"`
	Type        models.CollectionType `json:"type"`
	DeckType    *models.DeckType      `json:"deck_type,omitempty"`
	Description *string               `json:"description,omitempty"`
	Visibility  models.Visibility     `json:"visibility,omitempty"`
}

// ListCollections returns the caller's collections, newest first.
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.store.Collections.ListByUser(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, collections)
}

// CreateCollection creates a collection owned by the caller.
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := &models.Collection{
		UserID:      UserID(r.Context()),
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		DeckType:    req.DeckType,
		Description: req.Description,
		Visibility:  req.Visibility,
	}
	if err := h.store.CreateCollection(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, c)
}

// GetCollection returns a collection the caller may read.
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := h.store.ReadableCollection(r.Context(), id, UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, c)
}

// UpdateCollection patches a collection the caller owns.
func (h *CollectionHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	var patch storage.CollectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.store.UpdateCollection(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, c)
}

// DeleteCollection removes a collection with its entries and shares.
func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.Collections.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// ShareRequest is the body of POST /collections/{id}/shares.
type ShareRequest struct {
	UserID int `json:"user_id"`
}

// ListShares lists the users invited to a collection.
func (h *CollectionHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	shares, err := h.store.Shares.ListByCollection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, shares)
}

// AddShare invites a user to an invite-only collection.
func (h *CollectionHandler) AddShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID <= 0 {
		response.BadRequest(w, errors.New("user_id is required"))
		return
	}

	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.ShareCollection(r.Context(), id, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, models.CollectionShare{CollectionID: id, UserID: req.UserID})
}

// RemoveShare revokes a user's invitation.
func (h *CollectionHandler) RemoveShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "collectionID")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := pathInt(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.store.OwnedCollection(r.Context(), id, UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.Shares.Remove(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// SharedCollection is a collection opened through its share link.
type SharedCollection struct {
	Collection *models.Collection         `json:"collection"`
	Entries    []*models.CollectionEntry `json:"entries"`
}

// GetShared opens a collection by share slug. Private collections are not
// found even when they kept a slug; invite-only ones need an invited caller.
func (h *CollectionHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	c, err := h.store.Collections.GetBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, err)
		return
	}
	if c.Visibility == models.VisibilityPrivate {
		writeError(w, storage.ErrNotFound)
		return
	}

	if c.Visibility == models.VisibilityInviteOnly {
		userID, _ := headerUserID(r)
		ok, err := h.store.CanRead(r.Context(), c, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			writeError(w, storage.ErrForbidden)
			return
		}
	}

	entries, err := h.store.Entries.ListByCollection(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, SharedCollection{Collection: c, Entries: entries})
}
