package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"instantride/internal/repository"
)

// Store is a PostgreSQL repository.Store.
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a store on top of db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Rides() repository.RideRepository       { return NewRideRepository(s.db) }
func (s *Store) Drivers() repository.DriverRepository   { return NewDriverRepository(s.db) }
func (s *Store) Shuttles() repository.ShuttleRepository { return NewShuttleRepository(s.db) }
func (s *Store) Pricing() repository.PricingRepository  { return NewPricingRepository(s.db) }

// WithinTx runs fn inside one database transaction. Rows read through tx are
// locked until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &txRepos{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	tx *sql.Tx
}

func (t *txRepos) Rides() repository.RideRepository       { return NewRideRepositoryWithTx(t.tx) }
func (t *txRepos) Drivers() repository.DriverRepository   { return NewDriverRepositoryWithTx(t.tx) }
func (t *txRepos) Shuttles() repository.ShuttleRepository { return NewShuttleRepositoryWithTx(t.tx) }
