package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// setupTestService creates a service over a migrated in-memory database.
func setupTestService(t *testing.T) *Service {
	t.Helper()

	config := DefaultConfig(":memory:")
	config.AutoMigrate = true
	db, err := Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewService(db)
}

func ptr[T any](v T) *T { return &v }

func TestService_CollectionRules(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	c := &models.Collection{UserID: user.ID, Name: "Burn", Type: models.CollectionTypeDeck, DeckType: ptr(models.DeckType("modern"))}
	require.NoError(t, svc.CreateCollection(ctx, c))
	assert.Equal(t, models.DeckTypeModern, *c.DeckType)
	assert.Nil(t, c.ShareSlug)

	updated, err := svc.UpdateCollection(ctx, c.ID, CollectionPatch{DeckType: ptr(models.DeckTypeLegacy)})
	require.NoError(t, err)
	assert.Equal(t, models.DeckTypeLegacy, *updated.DeckType)

	updated, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{Type: ptr(models.CollectionTypeTradeBinder)})
	require.NoError(t, err)
	assert.Nil(t, updated.DeckType)

	_, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{DeckType: ptr(models.DeckTypeModern)})
	assert.True(t, repository.IsValidation(err))

	_, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{Type: ptr(models.CollectionTypeDeck)})
	assert.True(t, repository.IsValidation(err), "a deck needs a deck type")

	updated, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{Type: ptr(models.CollectionTypeDeck), DeckType: ptr(models.DeckTypePauper)})
	require.NoError(t, err)
	assert.Equal(t, models.DeckTypePauper, *updated.DeckType)

	_, err = svc.UpdateCollection(ctx, 999, CollectionPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ShareSlugAssignedLazily(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	c := &models.Collection{UserID: user.ID, Name: "Binder", Type: models.CollectionTypeTradeBinder}
	require.NoError(t, svc.CreateCollection(ctx, c))
	assert.Nil(t, c.ShareSlug)

	updated, err := svc.UpdateCollection(ctx, c.ID, CollectionPatch{Visibility: ptr(models.VisibilityPublic)})
	require.NoError(t, err)
	require.NotNil(t, updated.ShareSlug)
	slug := *updated.ShareSlug
	assert.Len(t, slug, 32)

	// Going private and back keeps the same slug.
	_, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{Visibility: ptr(models.VisibilityPrivate)})
	require.NoError(t, err)
	updated, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{Visibility: ptr(models.VisibilityInviteOnly)})
	require.NoError(t, err)
	assert.Equal(t, slug, *updated.ShareSlug)

	bySlug, err := svc.Collections.GetBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, c.ID, bySlug.ID)
}

func TestService_AccessChecks(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	owner, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	friend, err := svc.CreateUser(ctx, "bob")
	require.NoError(t, err)
	stranger, err := svc.CreateUser(ctx, "carol")
	require.NoError(t, err)

	c := &models.Collection{UserID: owner.ID, Name: "Binder", Type: models.CollectionTypeTradeBinder}
	require.NoError(t, svc.CreateCollection(ctx, c))

	_, err = svc.ReadableCollection(ctx, c.ID, friend.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.True(t, repository.IsValidation(svc.ShareCollection(ctx, c.ID, friend.ID)), "private collections take no shares")

	_, err = svc.UpdateCollection(ctx, c.ID, CollectionPatch{Visibility: ptr(models.VisibilityInviteOnly)})
	require.NoError(t, err)
	require.NoError(t, svc.ShareCollection(ctx, c.ID, friend.ID))
	assert.ErrorIs(t, svc.ShareCollection(ctx, c.ID, 999), ErrNotFound)

	_, err = svc.ReadableCollection(ctx, c.ID, friend.ID)
	assert.NoError(t, err)
	_, err = svc.ReadableCollection(ctx, c.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.OwnedCollection(ctx, c.ID, friend.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.OwnedCollection(ctx, c.ID, owner.ID)
	assert.NoError(t, err)
}

func TestService_EntryScopedToCollection(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	a := &models.Collection{UserID: user.ID, Name: "A", Type: models.CollectionTypeTradeBinder}
	b := &models.Collection{UserID: user.ID, Name: "B", Type: models.CollectionTypeTradeBinder}
	require.NoError(t, svc.CreateCollection(ctx, a))
	require.NoError(t, svc.CreateCollection(ctx, b))

	e, err := svc.Entries.Create(ctx, a.ID, models.AggregatedEntry{CatalogID: "bolt", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.UpdateEntry(ctx, b.ID, e.ID, repository.EntryUpdate{Quantity: ptr(3)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteEntry(ctx, b.ID, e.ID), ErrNotFound)

	updated, err := svc.UpdateEntry(ctx, a.ID, e.ID, repository.EntryUpdate{Quantity: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	require.NoError(t, svc.DeleteEntry(ctx, a.ID, e.ID))
}

func TestWithTransaction_RollsBack(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	err := svc.db.WithTransaction(ctx, func(r Repos) error {
		if err := r.Users.Create(ctx, &models.User{Username: "ghost"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = svc.Users.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
