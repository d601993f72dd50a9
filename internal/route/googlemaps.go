package route

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"instantride/internal/domain"
)

// GoogleMapsProvider estimates trips with the Directions API.
type GoogleMapsProvider struct {
	client *maps.Client
	region string
}

// NewGoogleMapsProvider creates a new GoogleMapsProvider with the given API
// key. region biases geocoding of free-text places, e.g. "NG".
func NewGoogleMapsProvider(apiKey, region string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleMapsProvider{client: client, region: region}, nil
}

// EstimateRoute returns the driving distance and duration of the first leg
// of the best route. Vehicle class does not change the road route.
func (p *GoogleMapsProvider) EstimateRoute(ctx context.Context, _ domain.VehicleClass, pickup, dropoff string) (domain.RouteEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      pickup,
		Destination: dropoff,
		Mode:        maps.TravelModeDriving,
		Region:      p.region,
	}

	routes, _, err := p.client.Directions(ctx, r)
	if err != nil {
		return domain.RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return domain.RouteEstimate{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return domain.RouteEstimate{
		DistanceKm:  float64(leg.Distance.Meters) / 1000,
		DurationMin: leg.Duration.Minutes(),
	}, nil
}
