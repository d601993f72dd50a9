package domain

import (
	"math"
	"time"
)

// PricingRule holds the fare parameters for one vehicle class.
type PricingRule struct {
	Base   float64 `json:"base"`
	PerKm  float64 `json:"per_km"`
	PerMin float64 `json:"per_min"`
	Min    float64 `json:"min"`
}

// Validate checks that every field is a finite, non-negative number.
func (r PricingRule) Validate() error {
	for _, v := range []float64{r.Base, r.PerKm, r.PerMin, r.Min} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidPricingRule
		}
	}
	return nil
}

// PricingSnapshot is an immutable version of a pricing rule.
type PricingSnapshot struct {
	ID           string
	VehicleClass VehicleClass
	Rule         PricingRule
	CreatedAt    time.Time
}

// Quote is a fare frozen at booking time together with the trip estimate it
// was computed from.
type Quote struct {
	VehicleClass VehicleClass
	DistanceKm   float64
	DurationMin  float64
	Fare         int64
	SnapshotID   string
}

// RouteEstimate is the distance and duration a route provider reports for a
// trip.
type RouteEstimate struct {
	DistanceKm  float64
	DurationMin float64
}
