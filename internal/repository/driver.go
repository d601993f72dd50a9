package repository

import (
	"context"

	"instantride/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// List retrieves all drivers ordered by ID.
	List(ctx context.Context) ([]*domain.Driver, error)

	// Update stores driver under optimistic version control.
	Update(ctx context.Context, driver *domain.Driver) error
}
