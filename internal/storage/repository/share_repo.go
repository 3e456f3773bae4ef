package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// ShareRepository handles invite-only collection shares.
type ShareRepository interface {
	// Add grants userID read access to collectionID. Adding twice is a no-op.
	Add(ctx context.Context, collectionID, userID int) error

	// Remove revokes a share.
	Remove(ctx context.Context, collectionID, userID int) error

	// ListByCollection lists the users a collection is shared with.
	ListByCollection(ctx context.Context, collectionID int) ([]*models.CollectionShare, error)

	// Exists reports whether collectionID is shared with userID.
	Exists(ctx context.Context, collectionID, userID int) (bool, error)
}

type shareRepository struct {
	db Querier
}

// NewShareRepository creates a new share repository.
func NewShareRepository(db Querier) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Add(ctx context.Context, collectionID, userID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collection_shares (collection_id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(collection_id, user_id) DO NOTHING`,
		collectionID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add share: %w", err)
	}
	return nil
}

func (r *shareRepository) Remove(ctx context.Context, collectionID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM collection_shares WHERE collection_id = ? AND user_id = ?`, collectionID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove share: %w", err)
	}
	return requireAffected(res)
}

func (r *shareRepository) ListByCollection(ctx context.Context, collectionID int) ([]*models.CollectionShare, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT collection_id, user_id, created_at
		FROM collection_shares WHERE collection_id = ? ORDER BY created_at, user_id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*models.CollectionShare{}
	for rows.Next() {
		s := &models.CollectionShare{}
		if err := rows.Scan(&s.CollectionID, &s.UserID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shares: %w", err)
	}
	return out, nil
}

func (r *shareRepository) Exists(ctx context.Context, collectionID, userID int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collection_shares WHERE collection_id = ? AND user_id = ?`, collectionID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check share: %w", err)
	}
	return n > 0, nil
}
