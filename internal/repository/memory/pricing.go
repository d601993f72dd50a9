package memory

import (
	"context"

	"instantride/internal/domain"
)

// PricingRepository keeps pricing snapshots in memory.
type PricingRepository struct {
	s *Store
}

func (r *PricingRepository) Save(ctx context.Context, snapshot *domain.PricingSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *snapshot
	r.s.snapshots = append(r.s.snapshots, &c)
	return nil
}

func (r *PricingRepository) List(ctx context.Context) ([]*domain.PricingSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.PricingSnapshot, 0, len(r.s.snapshots))
	for _, s := range r.s.snapshots {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}
