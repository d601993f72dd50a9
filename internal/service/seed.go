package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

// SeedPricing is the launch pricing per vehicle class.
var SeedPricing = map[domain.VehicleClass]domain.PricingRule{
	domain.VehicleClassCar: {Base: 1200, PerKm: 250, PerMin: 30, Min: 1800},
	domain.VehicleClassBus: {Base: 700, PerKm: 120, PerMin: 15, Min: 1000},
}

// seedWalkOns is the number of seats on s1 already taken by riders who
// boarded without booking.
const seedWalkOns = 6

// Seed loads the demo roster, pricing, shuttle run and rides into an empty
// store. A store that already has drivers is left alone. d2 is seeded busy
// together with the assigned ride it is serving.
func Seed(ctx context.Context, store repository.Store, pricing *PricingRegistry, now time.Time) error {
	drivers, err := store.Drivers().List(ctx)
	if err != nil {
		return err
	}
	if len(drivers) > 0 {
		return nil
	}

	for _, class := range domain.VehicleClasses {
		if _, err := pricing.GetActive(class); err == nil {
			continue
		}
		if _, err := pricing.Update(ctx, class, SeedPricing[class]); err != nil {
			return fmt.Errorf("failed to seed %s pricing: %w", class, err)
		}
	}

	for _, d := range []*domain.Driver{
		{ID: "d1", Name: "Adewale T.", Contact: "+2348030000001", VehicleClass: domain.VehicleClassCar,
			Vehicle: "Toyota Corolla • Black", Plate: "LND 123 AB", Status: domain.DriverStatusAvailable},
		{ID: "d2", Name: "Ifeoma C.", Contact: "+2348030000002", VehicleClass: domain.VehicleClassCar,
			Vehicle: "Honda Accord • Silver", Plate: "APP 908 ZY", Status: domain.DriverStatusBusy},
		{ID: "d3", Name: "Sani M.", Contact: "+2348030000003", VehicleClass: domain.VehicleClassBus,
			Vehicle: "Hiace Shuttle • White", Plate: "LAG 221 RT", Status: domain.DriverStatusAvailable},
	} {
		d.UpdatedAt = now
		if err := store.Drivers().Create(ctx, d); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("failed to seed driver %s: %w", d.ID, err)
		}
	}

	shuttle, err := domain.NewShuttle("s1", "d3", 18,
		[]string{"Ajah", "VGC", "Chevron", "Lekki Phase 1", "Ikoyi Bridge", "Victoria Island"}, now)
	if err != nil {
		return err
	}
	shuttle.JunctionIndex = 2
	for i := 1; i <= seedWalkOns; i++ {
		if _, err := shuttle.AcceptRide(fmt.Sprintf("s1-walkon-%d", i), now); err != nil {
			return err
		}
	}
	if err := store.Shuttles().Create(ctx, shuttle); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("failed to seed shuttle: %w", err)
	}

	car, err := pricing.GetActive(domain.VehicleClassCar)
	if err != nil {
		return err
	}
	created := now.Add(-12 * time.Minute)
	ride := &domain.Ride{
		ID:                uuid.New().String(),
		PublicCode:        "PTG-482019",
		VehicleClass:      domain.VehicleClassCar,
		Pickup:            "Lekki Phase 1 Gate",
		Dropoff:           "Victoria Island",
		EstimatedFare:     4500,
		DistanceKm:        12.4,
		DurationMin:       28,
		PricingSnapshotID: car.ID,
		PaymentMethod:     domain.PaymentMethodCash,
		PaymentStatus:     domain.PaymentStatusNotApplicable,
		Status:            domain.RideStatusRequested,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	if err := store.Rides().Create(ctx, ride); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("failed to seed ride: %w", err)
	}

	booked := now.Add(-9 * time.Minute)
	served := &domain.Ride{
		ID:                uuid.New().String(),
		PublicCode:        "PTG-731204",
		VehicleClass:      domain.VehicleClassCar,
		Pickup:            "Chevron Drive",
		Dropoff:           "Ikoyi Bridge",
		EstimatedFare:     3850,
		DistanceKm:        8.2,
		DurationMin:       19,
		PricingSnapshotID: car.ID,
		PaymentMethod:     domain.PaymentMethodCash,
		PaymentStatus:     domain.PaymentStatusNotApplicable,
		Status:            domain.RideStatusRequested,
		CreatedAt:         booked,
		UpdatedAt:         booked,
	}
	if err := served.AssignDriver("d2", 4, booked.Add(2*time.Minute)); err != nil {
		return err
	}
	if err := store.Rides().Create(ctx, served); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("failed to seed ride: %w", err)
	}
	return nil
}
