package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// ShuttleRepository is a PostgreSQL implementation of repository.ShuttleRepository.
type ShuttleRepository struct {
	q         Querier
	forUpdate bool
}

// NewShuttleRepository creates a new PostgreSQL shuttle repository.
func NewShuttleRepository(db *sql.DB) *ShuttleRepository {
	return &ShuttleRepository{q: db}
}

// NewShuttleRepositoryWithTx creates a shuttle repository using a transaction.
func NewShuttleRepositoryWithTx(tx *sql.Tx) *ShuttleRepository {
	return &ShuttleRepository{q: tx, forUpdate: true}
}

const shuttleColumns = `id, driver_id, capacity, filled, junctions, junction_index, status, accepted_ride_ids, seats, updated_at, version`

// Create adds a new shuttle run.
func (r *ShuttleRepository) Create(ctx context.Context, shuttle *domain.Shuttle) error {
	query := `INSERT INTO shuttles (` + shuttleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`
	_, err := r.q.ExecContext(ctx, query,
		shuttle.ID, shuttle.DriverID, shuttle.Capacity, shuttle.Filled,
		pq.Array(shuttle.Junctions), shuttle.JunctionIndex, shuttle.Status,
		pq.Array(nonNil(shuttle.AcceptedRideIDs)), pq.Array(seatArray(shuttle.Seats)), shuttle.UpdatedAt,
	)
	if err != nil {
		return mapInsertError(err)
	}
	shuttle.Version = 1
	return nil
}

// GetByID retrieves a shuttle by ID.
func (r *ShuttleRepository) GetByID(ctx context.Context, id string) (*domain.Shuttle, error) {
	query := `SELECT ` + shuttleColumns + ` FROM shuttles WHERE id = $1`
	if r.forUpdate {
		query += ` FOR UPDATE`
	}

	shuttle, err := scanShuttle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return shuttle, nil
}

// List retrieves all shuttles ordered by ID.
func (r *ShuttleRepository) List(ctx context.Context) ([]*domain.Shuttle, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+shuttleColumns+` FROM shuttles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shuttles []*domain.Shuttle
	for rows.Next() {
		shuttle, err := scanShuttle(rows)
		if err != nil {
			return nil, err
		}
		shuttles = append(shuttles, shuttle)
	}
	return shuttles, rows.Err()
}

// Update stores the shuttle if its version is current.
func (r *ShuttleRepository) Update(ctx context.Context, shuttle *domain.Shuttle) error {
	query := `
		UPDATE shuttles
		SET driver_id = $2, capacity = $3, filled = $4, junctions = $5, junction_index = $6,
			status = $7, accepted_ride_ids = $8, seats = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		shuttle.ID, shuttle.DriverID, shuttle.Capacity, shuttle.Filled,
		pq.Array(shuttle.Junctions), shuttle.JunctionIndex, shuttle.Status,
		pq.Array(nonNil(shuttle.AcceptedRideIDs)), pq.Array(seatArray(shuttle.Seats)), shuttle.UpdatedAt, shuttle.Version,
	)
	if err != nil {
		return err
	}
	if err := checkVersionedUpdate(ctx, r.q, result, "shuttles", shuttle.ID); err != nil {
		return err
	}
	shuttle.Version++
	return nil
}

func scanShuttle(row scanner) (*domain.Shuttle, error) {
	var (
		shuttle domain.Shuttle
		seats   []int64
	)
	err := row.Scan(
		&shuttle.ID,
		&shuttle.DriverID,
		&shuttle.Capacity,
		&shuttle.Filled,
		pq.Array(&shuttle.Junctions),
		&shuttle.JunctionIndex,
		&shuttle.Status,
		pq.Array(&shuttle.AcceptedRideIDs),
		pq.Array(&seats),
		&shuttle.UpdatedAt,
		&shuttle.Version,
	)
	if err != nil {
		return nil, err
	}
	shuttle.Seats = make([]int, len(seats))
	for i, seat := range seats {
		shuttle.Seats[i] = int(seat)
	}
	return &shuttle, nil
}

// nonNil keeps empty seat lists as '{}' rather than NULL.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func seatArray(seats []int) []int64 {
	out := make([]int64, len(seats))
	for i, seat := range seats {
		out[i] = int64(seat)
	}
	return out
}
