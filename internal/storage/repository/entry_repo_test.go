package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

func TestEntryRepository_CreateDefaults(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, nil)
	repo := NewEntryRepository(db)
	ctx := context.Background()

	e, err := repo.Create(ctx, c.ID, models.AggregatedEntry{CatalogID: " bolt ", Quantity: 3, PurchasePrice: ptr(1.25)})
	require.NoError(t, err)
	assert.Equal(t, "bolt", e.CatalogID)
	assert.Equal(t, models.ConditionNearMint, e.Condition)
	assert.Equal(t, models.FinishNonfoil, e.Finish)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	require.NotNil(t, got.PurchasePrice)
	assert.InDelta(t, 1.25, *got.PurchasePrice, 1e-9)
	assert.Nil(t, got.Notes)
	assert.False(t, got.IsCommander)
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name  string
		e     models.AggregatedEntry
		field string
	}{
		{"missing id", models.AggregatedEntry{Quantity: 1}, "scryfall_id"},
		{"zero quantity", models.AggregatedEntry{CatalogID: "x"}, "quantity"},
		{"bad condition", models.AggregatedEntry{CatalogID: "x", Quantity: 1, Condition: "MINTY"}, "condition"},
		{"bad finish", models.AggregatedEntry{CatalogID: "x", Quantity: 1, Finish: "glossy"}, "finish"},
		{"negative price", models.AggregatedEntry{CatalogID: "x", Quantity: 1, PurchasePrice: ptr(-1.0)}, "purchase_price"},
		{"valid", models.AggregatedEntry{CatalogID: "x", Quantity: 1, Finish: models.FinishEtched}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntry(&tt.e)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestEntryRepository_BulkCreate(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, ptr(models.DeckTypeCommander))
	repo := NewEntryRepository(db)
	ctx := context.Background()

	// The same card twice stays two rows: no aggregation happens here.
	created, err := repo.BulkCreate(ctx, c.ID, []models.AggregatedEntry{
		{CatalogID: "sol-ring", Quantity: 1},
		{CatalogID: "sol-ring", Quantity: 1},
		{CatalogID: "atraxa", Quantity: 1, IsCommander: true},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, e := range created {
		assert.NotZero(t, e.ID)
		assert.Equal(t, c.ID, e.CollectionID)
	}

	list, err := repo.ListByCollection(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[2].IsCommander)
}

func TestEntryRepository_BulkCreateRejectsBeforeWriting(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, nil)
	repo := NewEntryRepository(db)
	ctx := context.Background()

	tooMany := make([]models.AggregatedEntry, MaxBulkEntries+1)
	for i := range tooMany {
		tooMany[i] = models.AggregatedEntry{CatalogID: fmt.Sprintf("card-%d", i), Quantity: 1}
	}
	_, err := repo.BulkCreate(ctx, c.ID, tooMany)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "entries", ve.Field)

	_, err = repo.BulkCreate(ctx, c.ID, []models.AggregatedEntry{
		{CatalogID: "ok", Quantity: 1},
		{CatalogID: "bad", Quantity: 0},
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "entries[1].quantity", ve.Field)

	list, err := repo.ListByCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEntryRepository_BulkCreateExactlyMax(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, nil)

	entries := make([]models.AggregatedEntry, MaxBulkEntries)
	for i := range entries {
		entries[i] = models.AggregatedEntry{CatalogID: fmt.Sprintf("card-%d", i), Quantity: 1}
	}
	created, err := NewEntryRepository(db).BulkCreate(context.Background(), c.ID, entries)
	require.NoError(t, err)
	assert.Len(t, created, MaxBulkEntries)
}

func TestEntryRepository_BulkCreateRollsBackOnInsertFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntryRepository(db)

	// No such collection: the foreign key fails on the first insert.
	_, err := repo.BulkCreate(context.Background(), 12345, []models.AggregatedEntry{{CatalogID: "x", Quantity: 1}})
	require.Error(t, err)
	assert.False(t, IsValidation(err))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM collection_entries`).Scan(&n))
	assert.Zero(t, n)
}

func TestEntryRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, nil)
	repo := NewEntryRepository(db)
	ctx := context.Background()

	e, err := repo.Create(ctx, c.ID, models.AggregatedEntry{CatalogID: "bolt", Quantity: 4})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, e.ID, EntryUpdate{
		Quantity:    ptr(2),
		Condition:   ptr(models.ConditionLightlyPlayed),
		Finish:      ptr(models.FinishFoil),
		Notes:       ptr("from a trade"),
		IsSideboard: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, models.ConditionLightlyPlayed, got.Condition)
	assert.Equal(t, models.FinishFoil, got.Finish)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "from a trade", *got.Notes)
	assert.True(t, got.IsSideboard)

	_, err = repo.Update(ctx, e.ID, EntryUpdate{Quantity: ptr(-1)})
	assert.True(t, IsValidation(err))
	_, err = repo.Update(ctx, e.ID, EntryUpdate{Condition: ptr(models.Condition("SHINY"))})
	assert.True(t, IsValidation(err))
}

func TestEntryRepository_UpdateToZeroDeletes(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, nil)
	repo := NewEntryRepository(db)
	ctx := context.Background()

	e, err := repo.Create(ctx, c.ID, models.AggregatedEntry{CatalogID: "bolt", Quantity: 4})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, e.ID, EntryUpdate{Quantity: ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, updated)

	_, err = repo.GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, e.ID, EntryUpdate{Quantity: ptr(0)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntryRepository_QuantityCheckConstraint(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	c := createTestCollection(t, db, user.ID, nil)

	_, err := db.Exec(`INSERT INTO collection_entries (collection_id, scryfall_id, quantity) VALUES (?, 'x', 0)`, c.ID)
	assert.Error(t, err)
}
