package repository

import (
	"context"

	"instantride/internal/domain"
)

// PricingRepository stores pricing snapshots. Snapshots are append-only.
type PricingRepository interface {
	// Save appends a snapshot.
	Save(ctx context.Context, snapshot *domain.PricingSnapshot) error

	// List returns every snapshot, oldest first.
	List(ctx context.Context) ([]*domain.PricingSnapshot, error)
}
