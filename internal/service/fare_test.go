package service

import (
	"errors"
	"math"
	"testing"

	"instantride/internal/domain"
)

var (
	carRule = domain.PricingRule{Base: 1200, PerKm: 250, PerMin: 30, Min: 1800}
	busRule = domain.PricingRule{Base: 700, PerKm: 120, PerMin: 15, Min: 1000}
)

func TestEstimateFare_GoldenValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		class    domain.VehicleClass
		km, min  float64
		rule     domain.PricingRule
		expected int64
	}{
		{"car launch quote", domain.VehicleClassCar, 12.4, 28, carRule, 5150},
		{"bus launch quote", domain.VehicleClassBus, 10.8, 34, busRule, 2500},
		{"minimum applies", domain.VehicleClassCar, 0, 0, carRule, 1800},
		{"half rounds up", domain.VehicleClassCar, 0, 0, domain.PricingRule{Base: 1025}, 1050},
		{"below half rounds down", domain.VehicleClassCar, 0, 0, domain.PricingRule{Base: 1024}, 1000},
		{"zero rule", domain.VehicleClassBus, 5, 5, domain.PricingRule{}, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := EstimateFare(tt.class, tt.km, tt.min, tt.rule)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestEstimateFare_MultipleOfFiftyAboveMinimum(t *testing.T) {
	t.Parallel()

	for km := 0.0; km <= 40; km += 0.7 {
		for min := 0.0; min <= 90; min += 3.3 {
			for _, rule := range []domain.PricingRule{carRule, busRule} {
				fare, err := EstimateFare(domain.VehicleClassCar, km, min, rule)
				if err != nil {
					t.Fatalf("km=%v min=%v: %v", km, min, err)
				}
				if fare%fareIncrement != 0 {
					t.Fatalf("km=%v min=%v: fare %d is not a multiple of %d", km, min, fare, fareIncrement)
				}
				if float64(fare) < rule.Min {
					t.Fatalf("km=%v min=%v: fare %d below minimum %v", km, min, fare, rule.Min)
				}
			}
		}
	}
}

func TestEstimateFare_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		class   domain.VehicleClass
		km, min float64
		rule    domain.PricingRule
	}{
		{"negative distance", domain.VehicleClassCar, -1, 10, carRule},
		{"negative duration", domain.VehicleClassCar, 1, -10, carRule},
		{"NaN distance", domain.VehicleClassCar, math.NaN(), 10, carRule},
		{"infinite duration", domain.VehicleClassCar, 1, math.Inf(1), carRule},
		{"unknown class", domain.VehicleClass("boat"), 1, 1, carRule},
		{"negative rate", domain.VehicleClassCar, 1, 1, domain.PricingRule{PerKm: -5}},
		{"overflowing fare", domain.VehicleClassCar, math.MaxFloat64 / 2, 0, carRule},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := EstimateFare(tt.class, tt.km, tt.min, tt.rule)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}
}
