package memory

import (
	"context"
	"sort"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// DriverRepository is an in-memory implementation of repository.DriverRepository.
type DriverRepository struct {
	a access
}

// Create adds a new driver with version 1.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	return r.a.write(func(t table) error {
		if _, ok := t.driver(driver.ID); ok {
			return repository.ErrDuplicate
		}
		driver.Version = 1
		d := *driver
		t.putDriver(&d)
		return nil
	})
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	var out *domain.Driver
	err := r.a.read(func(t table) error {
		d, ok := t.driver(id)
		if !ok {
			return repository.ErrNotFound
		}
		c := *d
		out = &c
		return nil
	})
	return out, err
}

// List retrieves all drivers ordered by ID.
func (r *DriverRepository) List(ctx context.Context) ([]*domain.Driver, error) {
	var out []*domain.Driver
	err := r.a.read(func(t table) error {
		ids := t.driverIDs()
		sort.Strings(ids)
		for _, id := range ids {
			d, _ := t.driver(id)
			c := *d
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// Update stores the driver if its version is current.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	return r.a.write(func(t table) error {
		stored, ok := t.driver(driver.ID)
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != driver.Version {
			return repository.ErrVersionConflict
		}
		driver.Version++
		d := *driver
		t.putDriver(&d)
		return nil
	})
}
