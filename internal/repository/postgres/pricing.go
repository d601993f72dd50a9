package postgres

import (
	"context"
	"database/sql"

	"instantride/internal/domain"
)

// PricingRepository is a PostgreSQL implementation of repository.PricingRepository.
type PricingRepository struct {
	q Querier
}

// NewPricingRepository creates a new PostgreSQL pricing repository.
func NewPricingRepository(db *sql.DB) *PricingRepository {
	return &PricingRepository{q: db}
}

// Save appends a pricing snapshot.
func (r *PricingRepository) Save(ctx context.Context, snapshot *domain.PricingSnapshot) error {
	query := `
		INSERT INTO pricing_snapshots (id, vehicle_class, base, per_km, per_min, min_fare, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		snapshot.ID, snapshot.VehicleClass, snapshot.Rule.Base, snapshot.Rule.PerKm,
		snapshot.Rule.PerMin, snapshot.Rule.Min, snapshot.CreatedAt,
	)
	return mapInsertError(err)
}

// List returns every snapshot, oldest first.
func (r *PricingRepository) List(ctx context.Context) ([]*domain.PricingSnapshot, error) {
	query := `SELECT id, vehicle_class, base, per_km, per_min, min_fare, created_at FROM pricing_snapshots ORDER BY seq`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.PricingSnapshot
	for rows.Next() {
		var s domain.PricingSnapshot
		if err := rows.Scan(&s.ID, &s.VehicleClass, &s.Rule.Base, &s.Rule.PerKm, &s.Rule.PerMin, &s.Rule.Min, &s.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}
