package memory

import (
	"context"
	"sort"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// ShuttleRepository is an in-memory implementation of repository.ShuttleRepository.
type ShuttleRepository struct {
	a access
}

func (r *ShuttleRepository) Create(ctx context.Context, shuttle *domain.Shuttle) error {
	return r.a.write(func(t table) error {
		if _, ok := t.shuttle(shuttle.ID); ok {
			return repository.ErrDuplicate
		}
		shuttle.Version = 1
		t.putShuttle(shuttle.Clone())
		return nil
	})
}

func (r *ShuttleRepository) GetByID(ctx context.Context, id string) (*domain.Shuttle, error) {
	var out *domain.Shuttle
	err := r.a.read(func(t table) error {
		s, ok := t.shuttle(id)
		if !ok {
			return repository.ErrNotFound
		}
		out = s.Clone()
		return nil
	})
	return out, err
}

func (r *ShuttleRepository) List(ctx context.Context) ([]*domain.Shuttle, error) {
	var out []*domain.Shuttle
	err := r.a.read(func(t table) error {
		ids := t.shuttleIDs()
		sort.Strings(ids)
		for _, id := range ids {
			s, _ := t.shuttle(id)
			out = append(out, s.Clone())
		}
		return nil
	})
	return out, err
}

func (r *ShuttleRepository) Update(ctx context.Context, shuttle *domain.Shuttle) error {
	return r.a.write(func(t table) error {
		stored, ok := t.shuttle(shuttle.ID)
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Version != shuttle.Version {
			return repository.ErrVersionConflict
		}
		shuttle.Version++
		t.putShuttle(shuttle.Clone())
		return nil
	})
}
