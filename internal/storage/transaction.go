package storage

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Users       repository.UserRepository
	Collections repository.CollectionRepository
	Entries     repository.EntryRepository
	Shares      repository.ShareRepository
}

func newRepos(q repository.Querier) Repos {
	return Repos{
		Users:       repository.NewUserRepository(q),
		Collections: repository.NewCollectionRepository(q),
		Entries:     repository.NewEntryRepository(q),
		Shares:      repository.NewShareRepository(q),
	}
}

// TxFunc runs against repositories bound to a single transaction.
type TxFunc func(Repos) error

// WithTransaction executes fn within a database transaction.
// It commits on success and rolls back on error.
// If fn panics, the transaction is rolled back and the panic is re-raised.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
			if err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	err = fn(newRepos(tx))
	return err
}
