package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

// MaxBulkEntries caps a single bulk-create request.
const MaxBulkEntries = 500

// EntryUpdate carries the fields to change on an entry; nil fields are left alone.
// A Quantity of 0 deletes the entry.
type EntryUpdate struct {
	Quantity         *int              `json:"quantity,omitempty"`
	Condition        *models.Condition `json:"condition,omitempty"`
	Finish           *models.Finish    `json:"finish,omitempty"`
	PurchasePrice    *float64          `json:"purchase_price,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	IsCommander      *bool             `json:"is_commander,omitempty"`
	IsSideboard      *bool             `json:"is_sideboard,omitempty"`
	IsSignatureSpell *bool             `json:"is_signature_spell,omitempty"`
}

// EntryRepository handles database operations for collection entries.
type EntryRepository interface {
	// Create validates and inserts one entry.
	Create(ctx context.Context, collectionID int, e models.AggregatedEntry) (*models.CollectionEntry, error)

	// BulkCreate inserts up to MaxBulkEntries entries atomically, one row per entry.
	// It performs no aggregation of its own.
	BulkCreate(ctx context.Context, collectionID int, entries []models.AggregatedEntry) ([]*models.CollectionEntry, error)

	// GetByID retrieves an entry by ID.
	GetByID(ctx context.Context, id int) (*models.CollectionEntry, error)

	// ListByCollection lists a collection's entries in insertion order.
	ListByCollection(ctx context.Context, collectionID int) ([]*models.CollectionEntry, error)

	// Update applies u. It returns nil and no error when the update deleted the row.
	Update(ctx context.Context, id int, u EntryUpdate) (*models.CollectionEntry, error)

	// Delete removes an entry.
	Delete(ctx context.Context, id int) error
}

type entryRepository struct {
	db Querier
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db Querier) EntryRepository {
	return &entryRepository{db: db}
}

const entryColumns = `id, collection_id, scryfall_id, quantity, condition, finish, purchase_price, notes,
	is_commander, is_sideboard, is_signature_spell, created_at, updated_at`

// ValidateEntry applies the persistence-boundary checks to one entry and fills defaults.
func ValidateEntry(e *models.AggregatedEntry) error {
	e.CatalogID = strings.TrimSpace(e.CatalogID)
	if e.CatalogID == "" {
		return &ValidationError{Field: "scryfall_id", Reason: "required"}
	}
	if e.Quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	e.Condition = e.Condition.OrDefault()
	if !e.Condition.Valid() {
		return &ValidationError{Field: "condition", Reason: fmt.Sprintf("unknown condition %q", e.Condition)}
	}
	e.Finish = e.Finish.OrDefault()
	if !e.Finish.Valid() {
		return &ValidationError{Field: "finish", Reason: fmt.Sprintf("unknown finish %q", e.Finish)}
	}
	if e.PurchasePrice != nil && (*e.PurchasePrice < 0 || math.IsNaN(*e.PurchasePrice) || math.IsInf(*e.PurchasePrice, 0)) {
		return &ValidationError{Field: "purchase_price", Reason: "must be a non-negative number"}
	}
	return nil
}

func (r *entryRepository) Create(ctx context.Context, collectionID int, e models.AggregatedEntry) (*models.CollectionEntry, error) {
	if err := ValidateEntry(&e); err != nil {
		return nil, err
	}
	return insertEntry(ctx, r.db, collectionID, e, time.Now().UTC())
}

func (r *entryRepository) BulkCreate(ctx context.Context, collectionID int, entries []models.AggregatedEntry) ([]*models.CollectionEntry, error) {
	if len(entries) > MaxBulkEntries {
		return nil, &ValidationError{
			Field:  "entries",
			Reason: fmt.Sprintf("%d entries exceeds the maximum of %d per request", len(entries), MaxBulkEntries),
		}
	}
	// Validate everything before the first write.
	checked := make([]models.AggregatedEntry, len(entries))
	for i, e := range entries {
		if err := ValidateEntry(&e); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, &ValidationError{Field: fmt.Sprintf("entries[%d].%s", i, ve.Field), Reason: ve.Reason}
			}
			return nil, err
		}
		checked[i] = e
	}
	if len(checked) == 0 {
		return []*models.CollectionEntry{}, nil
	}

	q := r.db
	var tx *sql.Tx
	if b, ok := r.db.(txBeginner); ok {
		var err error
		tx, err = b.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		q = tx
	}

	now := time.Now().UTC()
	created := make([]*models.CollectionEntry, 0, len(checked))
	for _, e := range checked {
		ce, err := insertEntry(ctx, q, collectionID, e, now)
		if err != nil {
			if tx != nil {
				_ = tx.Rollback()
			}
			return nil, err
		}
		created = append(created, ce)
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	return created, nil
}

func insertEntry(ctx context.Context, q Querier, collectionID int, e models.AggregatedEntry, now time.Time) (*models.CollectionEntry, error) {
	ce := &models.CollectionEntry{
		CollectionID:     collectionID,
		CatalogID:        e.CatalogID,
		Quantity:         e.Quantity,
		Condition:        e.Condition,
		Finish:           e.Finish,
		PurchasePrice:    e.PurchasePrice,
		Notes:            e.Notes,
		IsCommander:      e.IsCommander,
		IsSideboard:      e.IsSideboard,
		IsSignatureSpell: e.IsSignatureSpell,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO collection_entries (
			collection_id, scryfall_id, quantity, condition, finish, purchase_price, notes,
			is_commander, is_sideboard, is_signature_spell, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		ce.CollectionID, ce.CatalogID, ce.Quantity, ce.Condition, ce.Finish, ce.PurchasePrice, ce.Notes,
		ce.IsCommander, ce.IsSideboard, ce.IsSignatureSpell, ce.CreatedAt, ce.UpdatedAt,
	).Scan(&ce.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return ce, nil
}

func (r *entryRepository) GetByID(ctx context.Context, id int) (*models.CollectionEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM collection_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func (r *entryRepository) ListByCollection(ctx context.Context, collectionID int) ([]*models.CollectionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM collection_entries WHERE collection_id = ? ORDER BY id`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*models.CollectionEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return out, nil
}

func (r *entryRepository) Update(ctx context.Context, id int, u EntryUpdate) (*models.CollectionEntry, error) {
	if u.Quantity != nil && *u.Quantity < 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if u.Quantity != nil && *u.Quantity == 0 {
		return nil, r.Delete(ctx, id)
	}

	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := models.AggregatedEntry{
		CatalogID:        e.CatalogID,
		Quantity:         e.Quantity,
		Condition:        e.Condition,
		Finish:           e.Finish,
		PurchasePrice:    e.PurchasePrice,
		Notes:            e.Notes,
		IsCommander:      e.IsCommander,
		IsSideboard:      e.IsSideboard,
		IsSignatureSpell: e.IsSignatureSpell,
	}
	if u.Quantity != nil {
		patch.Quantity = *u.Quantity
	}
	if u.Condition != nil {
		patch.Condition = *u.Condition
	}
	if u.Finish != nil {
		patch.Finish = *u.Finish
	}
	if u.PurchasePrice != nil {
		patch.PurchasePrice = u.PurchasePrice
	}
	if u.Notes != nil {
		patch.Notes = u.Notes
	}
	if u.IsCommander != nil {
		patch.IsCommander = *u.IsCommander
	}
	if u.IsSideboard != nil {
		patch.IsSideboard = *u.IsSideboard
	}
	if u.IsSignatureSpell != nil {
		patch.IsSignatureSpell = *u.IsSignatureSpell
	}
	if err := ValidateEntry(&patch); err != nil {
		return nil, err
	}

	e.Quantity = patch.Quantity
	e.Condition = patch.Condition
	e.Finish = patch.Finish
	e.PurchasePrice = patch.PurchasePrice
	e.Notes = patch.Notes
	e.IsCommander = patch.IsCommander
	e.IsSideboard = patch.IsSideboard
	e.IsSignatureSpell = patch.IsSignatureSpell
	e.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE collection_entries
		SET quantity = ?, condition = ?, finish = ?, purchase_price = ?, notes = ?,
			is_commander = ?, is_sideboard = ?, is_signature_spell = ?, updated_at = ?
		WHERE id = ?`,
		e.Quantity, e.Condition, e.Finish, e.PurchasePrice, e.Notes,
		e.IsCommander, e.IsSideboard, e.IsSignatureSpell, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *entryRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collection_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return requireAffected(res)
}

func scanEntry(s rowScanner) (*models.CollectionEntry, error) {
	e := &models.CollectionEntry{}
	err := s.Scan(&e.ID, &e.CollectionID, &e.CatalogID, &e.Quantity, &e.Condition, &e.Finish,
		&e.PurchasePrice, &e.Notes, &e.IsCommander, &e.IsSideboard, &e.IsSignatureSpell,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
