package repository

import (
	"context"

	"instantride/internal/domain"
)

// ShuttleRepository defines the persistence operations for shuttle runs.
type ShuttleRepository interface {
	Create(ctx context.Context, shuttle *domain.Shuttle) error
	GetByID(ctx context.Context, id string) (*domain.Shuttle, error)
	// List retrieves all shuttles ordered by ID.
	List(ctx context.Context) ([]*domain.Shuttle, error)
	Update(ctx context.Context, shuttle *domain.Shuttle) error
}
