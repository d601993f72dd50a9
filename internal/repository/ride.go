package repository

import (
	"context"

	"instantride/internal/domain"
)

// RideFilter selects rides for listing. Zero fields match everything; set
// fields are ANDed.
type RideFilter struct {
	Status        domain.RideStatus
	VehicleClass  domain.VehicleClass
	PaymentMethod domain.PaymentMethod
}

// Match reports whether ride satisfies every set predicate.
func (f RideFilter) Match(ride *domain.Ride) bool {
	if f.Status != "" && ride.Status != f.Status {
		return false
	}
	if f.VehicleClass != "" && ride.VehicleClass != f.VehicleClass {
		return false
	}
	if f.PaymentMethod != "" && ride.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride with version 1.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByPublicCode retrieves a ride by its customer-facing code.
	GetByPublicCode(ctx context.Context, code string) (*domain.Ride, error)

	// GetByTxRef retrieves a ride by gateway transaction reference.
	GetByTxRef(ctx context.Context, txRef string) (*domain.Ride, error)

	// List returns matching rides in insertion order.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// Update stores ride if its version matches the stored one, then bumps
	// the version.
	Update(ctx context.Context, ride *domain.Ride) error
}
