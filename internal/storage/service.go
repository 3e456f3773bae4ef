package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// ErrNotFound is returned when a user, collection or entry does not exist.
var ErrNotFound = repository.ErrNotFound

// ErrForbidden is returned when a user may not touch a collection.
var ErrForbidden = errors.New("forbidden")

// CollectionPatch carries the collection fields to change; nil fields are left alone.
type CollectionPatch struct {
	Name        *string                `json:"name,omitempty"`
	Type        *models.CollectionType `json:"type,omitempty"`
	DeckType    *models.DeckType       `json:"deck_type,omitempty"`
	Description *string                `json:"description,omitempty"`
	Visibility  *models.Visibility     `json:"visibility,omitempty"`
}

// Service provides collection-level operations on top of the repositories.
type Service struct {
	db *DB
	Repos
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{db: db, Repos: newRepos(db.Conn())}
}

// NewShareSlug returns a fresh opaque share token.
func NewShareSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateUser registers a username.
func (s *Service) CreateUser(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{Username: username}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateCollection stores c, assigning a share slug when it starts out non-private.
func (s *Service) CreateCollection(ctx context.Context, c *models.Collection) error {
	if c.Type == models.CollectionTypeDeck && c.DeckType != nil {
		if dt, ok := models.ParseDeckType(string(*c.DeckType)); ok {
			c.DeckType = &dt
		}
	}
	ensureSlug(c)
	return s.Collections.Create(ctx, c)
}

// UpdateCollection applies p under the collection rules: the deck type only
// changes while the type stays DECK, switching to TRADE_BINDER clears it, and a
// share slug is assigned the first time visibility leaves PRIVATE.
func (s *Service) UpdateCollection(ctx context.Context, id int, p CollectionPatch) (*models.Collection, error) {
	var out *models.Collection
	err := s.db.WithTransaction(ctx, func(r Repos) error {
		c, err := r.Collections.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := applyPatch(c, p); err != nil {
			return err
		}
		if err := r.Collections.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyPatch(c *models.Collection, p CollectionPatch) error {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		if *p.Description == "" {
			c.Description = nil
		} else {
			c.Description = p.Description
		}
	}
	if p.Type != nil {
		c.Type = *p.Type
		if c.Type == models.CollectionTypeTradeBinder {
			c.DeckType = nil
		}
	}
	if p.DeckType != nil {
		if c.Type != models.CollectionTypeDeck {
			return &repository.ValidationError{Field: "deck_type", Reason: "can only be set on decks"}
		}
		dt, ok := models.ParseDeckType(string(*p.DeckType))
		if !ok {
			return &repository.ValidationError{Field: "deck_type", Reason: fmt.Sprintf("unknown deck type %q", *p.DeckType)}
		}
		c.DeckType = &dt
	}
	if p.Visibility != nil {
		c.Visibility = *p.Visibility
	}
	ensureSlug(c)
	return nil
}

func ensureSlug(c *models.Collection) {
	if c.Visibility != "" && c.Visibility != models.VisibilityPrivate && c.ShareSlug == nil {
		slug := NewShareSlug()
		c.ShareSlug = &slug
	}
}

// CanRead reports whether userID may read c.
func (s *Service) CanRead(ctx context.Context, c *models.Collection, userID int) (bool, error) {
	switch {
	case c.UserID == userID:
		return true, nil
	case c.Visibility == models.VisibilityPublic:
		return true, nil
	case c.Visibility == models.VisibilityInviteOnly:
		return s.Shares.Exists(ctx, c.ID, userID)
	}
	return false, nil
}

// OwnedCollection loads a collection and checks that userID owns it.
func (s *Service) OwnedCollection(ctx context.Context, id, userID int) (*models.Collection, error) {
	c, err := s.Collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrForbidden
	}
	return c, nil
}

// ReadableCollection loads a collection and checks that userID may read it.
func (s *Service) ReadableCollection(ctx context.Context, id, userID int) (*models.Collection, error) {
	c, err := s.Collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.CanRead(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return c, nil
}

// ShareCollection invites userID to an invite-only collection.
func (s *Service) ShareCollection(ctx context.Context, collectionID, userID int) error {
	return s.db.WithTransaction(ctx, func(r Repos) error {
		c, err := r.Collections.GetByID(ctx, collectionID)
		if err != nil {
			return err
		}
		if c.Visibility != models.VisibilityInviteOnly {
			return &repository.ValidationError{Field: "visibility", Reason: "only invite-only collections take shares"}
		}
		if c.UserID == userID {
			return &repository.ValidationError{Field: "user_id", Reason: "owner cannot be invited"}
		}
		if _, err := r.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		return r.Shares.Add(ctx, collectionID, userID)
	})
}

// EntryInCollection loads an entry and checks that it belongs to collectionID.
func (s *Service) EntryInCollection(ctx context.Context, collectionID, entryID int) (*models.CollectionEntry, error) {
	e, err := s.Entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.CollectionID != collectionID {
		return nil, ErrNotFound
	}
	return e, nil
}

// UpdateEntry patches an entry of collectionID. A nil entry and no error means it was deleted.
func (s *Service) UpdateEntry(ctx context.Context, collectionID, entryID int, u repository.EntryUpdate) (*models.CollectionEntry, error) {
	if _, err := s.EntryInCollection(ctx, collectionID, entryID); err != nil {
		return nil, err
	}
	return s.Entries.Update(ctx, entryID, u)
}

// DeleteEntry removes an entry of collectionID.
func (s *Service) DeleteEntry(ctx context.Context, collectionID, entryID int) error {
	if _, err := s.EntryInCollection(ctx, collectionID, entryID); err != nil {
		return err
	}
	return s.Entries.Delete(ctx, entryID)
}
