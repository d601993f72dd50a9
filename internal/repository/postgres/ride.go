package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q         Querier
	forUpdate bool
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
// Single-row reads lock the row until the transaction ends.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx, forUpdate: true}
}

const rideColumns = `id, public_code, vehicle_class, pickup, dropoff, note, estimated_fare,
	distance_km, duration_min, pricing_snapshot_id, payment_method, payment_status, tx_ref, status,
	assigned_driver_id, assigned_shuttle_id, seat, eta_min, assigned_at, cash_confirmed,
	created_at, updated_at, completed_at, cancelled_at, version`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, 1)`

	args := rideArgs(ride)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return mapInsertError(err)
	}
	ride.Version = 1
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByPublicCode retrieves a ride by its public code.
func (r *RideRepository) GetByPublicCode(ctx context.Context, code string) (*domain.Ride, error) {
	return r.getOne(ctx, "public_code = $1", code)
}

// GetByTxRef retrieves a ride by gateway transaction reference.
func (r *RideRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.Ride, error) {
	return r.getOne(ctx, "tx_ref = $1", txRef)
}

func (r *RideRepository) getOne(ctx context.Context, where string, arg any) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE ` + where
	if r.forUpdate {
		query += ` FOR UPDATE`
	}

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// List returns matching rides in insertion order.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value string) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if filter.VehicleClass != "" {
		add("vehicle_class", string(filter.VehicleClass))
	}
	if filter.PaymentMethod != "" {
		add("payment_method", string(filter.PaymentMethod))
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Update stores the ride if its version is current.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET public_code = $2, vehicle_class = $3, pickup = $4, dropoff = $5, note = $6, estimated_fare = $7,
			distance_km = $8, duration_min = $9, pricing_snapshot_id = $10, payment_method = $11,
			payment_status = $12, tx_ref = $13, status = $14, assigned_driver_id = $15,
			assigned_shuttle_id = $16, seat = $17, eta_min = $18, assigned_at = $19, cash_confirmed = $20,
			created_at = $21, updated_at = $22, completed_at = $23, cancelled_at = $24,
			version = version + 1
		WHERE id = $1 AND version = $25
	`

	args := append(rideArgs(ride), ride.Version)
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapInsertError(err)
	}
	if err := checkVersionedUpdate(ctx, r.q, result, "rides", ride.ID); err != nil {
		return err
	}
	ride.Version++
	return nil
}

func rideArgs(ride *domain.Ride) []any {
	var (
		driverID, shuttleID sql.NullString
		seat, eta           int
		assignedAt          sql.NullTime
	)
	if a := ride.Assignment; a != nil {
		driverID = nullString(a.DriverID)
		shuttleID = nullString(a.ShuttleID)
		seat = a.Seat
		eta = a.ETAMin
		assignedAt = nullTime(a.AssignedAt)
	}

	return []any{
		ride.ID,
		ride.PublicCode,
		ride.VehicleClass,
		ride.Pickup,
		ride.Dropoff,
		ride.Note,
		ride.EstimatedFare,
		ride.DistanceKm,
		ride.DurationMin,
		ride.PricingSnapshotID,
		ride.PaymentMethod,
		ride.PaymentStatus,
		nullString(ride.TxRef),
		ride.Status,
		driverID,
		shuttleID,
		seat,
		eta,
		assignedAt,
		ride.CashConfirmed,
		ride.CreatedAt,
		ride.UpdatedAt,
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
	}
}

func scanRide(row scanner) (*domain.Ride, error) {
	var (
		ride                     domain.Ride
		txRef                    sql.NullString
		driverID, shuttleID      sql.NullString
		seat, eta                int
		assignedAt               sql.NullTime
		completedAt, cancelledAt sql.NullTime
	)

	err := row.Scan(
		&ride.ID,
		&ride.PublicCode,
		&ride.VehicleClass,
		&ride.Pickup,
		&ride.Dropoff,
		&ride.Note,
		&ride.EstimatedFare,
		&ride.DistanceKm,
		&ride.DurationMin,
		&ride.PricingSnapshotID,
		&ride.PaymentMethod,
		&ride.PaymentStatus,
		&txRef,
		&ride.Status,
		&driverID,
		&shuttleID,
		&seat,
		&eta,
		&assignedAt,
		&ride.CashConfirmed,
		&ride.CreatedAt,
		&ride.UpdatedAt,
		&completedAt,
		&cancelledAt,
		&ride.Version,
	)
	if err != nil {
		return nil, err
	}

	ride.TxRef = txRef.String
	if driverID.Valid || shuttleID.Valid {
		ride.Assignment = &domain.Assignment{
			DriverID:   driverID.String,
			ShuttleID:  shuttleID.String,
			Seat:       seat,
			ETAMin:     eta,
			AssignedAt: assignedAt.Time,
		}
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	return &ride, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
