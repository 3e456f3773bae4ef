package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ramonehamilton/mtg-binder/internal/storage/migrations"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// setupTestDB opens an in-memory database with every migration applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	src, err := migrations.Source()
	require.NoError(t, err)
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	require.NoError(t, err)
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func createTestUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func createTestCollection(t *testing.T, db *sql.DB, userID int, deckType *models.DeckType) *models.Collection {
	t.Helper()
	c := &models.Collection{UserID: userID, Name: "Binder", Type: models.CollectionTypeTradeBinder}
	if deckType != nil {
		c.Name = "Deck"
		c.Type = models.CollectionTypeDeck
		c.DeckType = deckType
	}
	require.NoError(t, NewCollectionRepository(db).Create(context.Background(), c))
	return c
}

func ptr[T any](v T) *T { return &v }
