package route

import (
	"context"
	"errors"
	"fmt"

	"instantride/internal/domain"
)

// ErrNoRoute is returned when a provider finds no way between two places.
var ErrNoRoute = errors.New("no route found")

// DefaultEstimates are the flat per-class trip estimates quoted before a
// maps provider is configured.
var DefaultEstimates = map[domain.VehicleClass]domain.RouteEstimate{
	domain.VehicleClassCar: {DistanceKm: 12.4, DurationMin: 28},
	domain.VehicleClassBus: {DistanceKm: 10.8, DurationMin: 34},
}

// FixedProvider answers every trip with one estimate per vehicle class.
type FixedProvider struct {
	estimates map[domain.VehicleClass]domain.RouteEstimate
}

// NewFixedProvider creates a FixedProvider. A nil map uses DefaultEstimates.
func NewFixedProvider(estimates map[domain.VehicleClass]domain.RouteEstimate) *FixedProvider {
	if estimates == nil {
		estimates = DefaultEstimates
	}
	return &FixedProvider{estimates: estimates}
}

// EstimateRoute returns the configured estimate for class.
func (p *FixedProvider) EstimateRoute(ctx context.Context, class domain.VehicleClass, pickup, dropoff string) (domain.RouteEstimate, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteEstimate{}, err
	}
	est, ok := p.estimates[class]
	if !ok {
		return domain.RouteEstimate{}, fmt.Errorf("%w: no estimate for %s", ErrNoRoute, class)
	}
	return est, nil
}
