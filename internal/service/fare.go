package service

import (
	"math"

	"instantride/internal/domain"
)

// fareIncrement is the step quotes are rounded to.
const fareIncrement = 50

// maxFare keeps the float to int64 conversion exact.
const maxFare = 1 << 53

// EstimateFare prices a trip under rule. The raw fare is rounded half-up to
// the nearest fareIncrement and floored at rule.Min.
func EstimateFare(class domain.VehicleClass, distanceKm, durationMin float64, rule domain.PricingRule) (int64, error) {
	if !class.Valid() {
		return 0, domain.ErrUnknownVehicleClass
	}
	if !validTripValue(distanceKm) || !validTripValue(durationMin) {
		return 0, domain.ErrNegativeTrip
	}
	if err := rule.Validate(); err != nil {
		return 0, err
	}

	raw := rule.Base + rule.PerKm*distanceKm + rule.PerMin*durationMin
	rounded := math.Floor(raw/fareIncrement+0.5) * fareIncrement
	fare := math.Ceil(math.Max(rule.Min, rounded))
	if math.IsInf(fare, 0) || fare > maxFare {
		return 0, ErrFareOutOfRange
	}
	return int64(fare), nil
}

func validTripValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
