package memory

import (
	"context"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// RideRepository is an in-memory implementation of repository.RideRepository.
type RideRepository struct {
	a access
}

// Create adds a new ride with version 1.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	return r.a.write(func(t table) error {
		if _, ok := t.ride(ride.ID); ok {
			return repository.ErrDuplicate
		}
		if _, ok := t.rideByCode(ride.PublicCode); ok {
			return repository.ErrDuplicate
		}
		ride.Version = 1
		t.putRide(ride.Clone())
		return nil
	})
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(func(t table) (*domain.Ride, bool) { return t.ride(id) })
}

// GetByPublicCode retrieves a ride by public code.
func (r *RideRepository) GetByPublicCode(ctx context.Context, code string) (*domain.Ride, error) {
	return r.get(func(t table) (*domain.Ride, bool) { return t.rideByCode(code) })
}

// GetByTxRef retrieves a ride by gateway transaction reference.
func (r *RideRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.Ride, error) {
	return r.get(func(t table) (*domain.Ride, bool) { return t.rideByTxRef(txRef) })
}

func (r *RideRepository) get(lookup func(t table) (*domain.Ride, bool)) (*domain.Ride, error) {
	var out *domain.Ride
	err := r.a.read(func(t table) error {
		ride, ok := lookup(t)
		if !ok {
			return repository.ErrNotFound
		}
		out = ride.Clone()
		return nil
	})
	return out, err
}

// List returns matching rides in insertion order.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var out []*domain.Ride
	err := r.a.read(func(t table) error {
		for _, id := range t.rideIDs() {
			ride, _ := t.ride(id)
			if filter.Match(ride) {
				out = append(out, ride.Clone())
			}
		}
		return nil
	})
	return out, err
}

// Update stores the ride if its version is current.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	return r.a.write(func(t table) error {
		stored, ok := t.ride(ride.ID)
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != ride.Version {
			return repository.ErrVersionConflict
		}
		ride.Version++
		t.putRide(ride.Clone())
		return nil
	})
}
