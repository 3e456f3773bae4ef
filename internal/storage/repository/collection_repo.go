package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// CollectionRepository handles database operations for collections.
type CollectionRepository interface {
	// Create validates and inserts a collection, setting its ID and timestamps.
	Create(ctx context.Context, c *models.Collection) error

	// GetByID retrieves a collection by ID.
	GetByID(ctx context.Context, id int) (*models.Collection, error)

	// GetBySlug retrieves a shared collection by its share slug.
	GetBySlug(ctx context.Context, slug string) (*models.Collection, error)

	// ListByUser lists a user's collections, newest first.
	ListByUser(ctx context.Context, userID int) ([]*models.Collection, error)

	// Update validates and writes every mutable column.
	Update(ctx context.Context, c *models.Collection) error

	// Delete removes a collection; entries and shares cascade.
	Delete(ctx context.Context, id int) error
}

type collectionRepository struct {
	db Querier
}

// NewCollectionRepository creates a new collection repository.
func NewCollectionRepository(db Querier) CollectionRepository {
	return &collectionRepository{db: db}
}

const collectionColumns = `id, user_id, name, type, deck_type, description, visibility, share_slug, created_at, updated_at`

// ValidateCollection checks the type/deck-type pairing and enum values.
func ValidateCollection(c *models.Collection) error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if !c.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown collection type %q", c.Type)}
	}
	if c.IsDeck() {
		if c.DeckType == nil {
			return &ValidationError{Field: "deck_type", Reason: "required for decks"}
		}
		if _, ok := models.ParseDeckType(string(*c.DeckType)); !ok {
			return &ValidationError{Field: "deck_type", Reason: fmt.Sprintf("unknown deck type %q", *c.DeckType)}
		}
	} else if c.DeckType != nil {
		return &ValidationError{Field: "deck_type", Reason: "only decks have a deck type"}
	}
	if !c.Visibility.Valid() {
		return &ValidationError{Field: "visibility", Reason: fmt.Sprintf("unknown visibility %q", c.Visibility)}
	}
	return nil
}

func (r *collectionRepository) Create(ctx context.Context, c *models.Collection) error {
	if c.Visibility == "" {
		c.Visibility = models.VisibilityPrivate
	}
	if err := ValidateCollection(c); err != nil {
		return err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO collections (user_id, name, type, deck_type, description, visibility, share_slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		c.UserID, c.Name, c.Type, c.DeckType, c.Description, c.Visibility, c.ShareSlug, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *collectionRepository) GetByID(ctx context.Context, id int) (*models.Collection, error) {
	return r.getOne(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
}

func (r *collectionRepository) GetBySlug(ctx context.Context, slug string) (*models.Collection, error) {
	return r.getOne(ctx, `SELECT `+collectionColumns+` FROM collections WHERE share_slug = ?`, slug)
}

func (r *collectionRepository) getOne(ctx context.Context, query string, arg any) (*models.Collection, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return c, nil
}

func (r *collectionRepository) ListByUser(ctx context.Context, userID int) ([]*models.Collection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return out, nil
}

func (r *collectionRepository) Update(ctx context.Context, c *models.Collection) error {
	if err := ValidateCollection(c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE collections
		SET name = ?, type = ?, deck_type = ?, description = ?, visibility = ?, share_slug = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Type, c.DeckType, c.Description, c.Visibility, c.ShareSlug, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	return requireAffected(res)
}

func (r *collectionRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return requireAffected(res)
}

func scanCollection(s rowScanner) (*models.Collection, error) {
	c := &models.Collection{}
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.DeckType, &c.Description,
		&c.Visibility, &c.ShareSlug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
