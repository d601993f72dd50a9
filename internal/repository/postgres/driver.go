package postgres

import (
	"context"
	"database/sql"
	"errors"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q         Querier
	forUpdate bool
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx, forUpdate: true}
}

const driverColumns = `id, name, contact, vehicle_class, vehicle, plate, status, updated_at, version`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `INSERT INTO drivers (` + driverColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID, driver.Name, driver.Contact, driver.VehicleClass,
		driver.Vehicle, driver.Plate, driver.Status, driver.UpdatedAt,
	)
	if err != nil {
		return mapInsertError(err)
	}
	driver.Version = 1
	return nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	if r.forUpdate {
		query += ` FOR UPDATE`
	}

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// List retrieves all drivers ordered by ID.
func (r *DriverRepository) List(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// Update stores the driver if its version is current.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET name = $2, contact = $3, vehicle_class = $4, vehicle = $5, plate = $6, status = $7,
			updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		driver.ID, driver.Name, driver.Contact, driver.VehicleClass, driver.Vehicle,
		driver.Plate, driver.Status, driver.UpdatedAt, driver.Version,
	)
	if err != nil {
		return err
	}
	if err := checkVersionedUpdate(ctx, r.q, result, "drivers", driver.ID); err != nil {
		return err
	}
	driver.Version++
	return nil
}

func scanDriver(row scanner) (*domain.Driver, error) {
	var driver domain.Driver
	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Contact,
		&driver.VehicleClass,
		&driver.Vehicle,
		&driver.Plate,
		&driver.Status,
		&driver.UpdatedAt,
		&driver.Version,
	)
	if err != nil {
		return nil, err
	}
	return &driver, nil
}
