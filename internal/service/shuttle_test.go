package service

import (
	"context"
	"errors"
	"testing"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

func TestShuttleService_Register(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.shuttles.Register(ctx, RegisterShuttleRequest{
		ID:        "s2",
		DriverID:  "d3",
		Capacity:  14,
		Junctions: []string{"Ikorodu", " ", "Ketu", "Ojota"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.Status != domain.ShuttleStatusActive || s.CurrentJunction() != "Ikorodu" || len(s.Junctions) != 3 {
		t.Errorf("unexpected shuttle %+v", s)
	}

	tests := []struct {
		name     string
		req      RegisterShuttleRequest
		expected error
	}{
		{"no driver", RegisterShuttleRequest{Capacity: 4, Junctions: []string{"A", "B"}}, ErrInvalidDriverID},
		{"car driver", RegisterShuttleRequest{DriverID: "d1", Capacity: 4, Junctions: []string{"A", "B"}}, domain.ErrVehicleClassMismatch},
		{"zero capacity", RegisterShuttleRequest{DriverID: "d3", Junctions: []string{"A", "B"}}, domain.ErrInvalidCapacity},
		{"no junctions", RegisterShuttleRequest{DriverID: "d3", Capacity: 4}, domain.ErrNoJunctions},
		{"unknown driver", RegisterShuttleRequest{DriverID: "d9", Capacity: 4, Junctions: []string{"A"}}, repository.ErrNotFound},
		{"duplicate id", RegisterShuttleRequest{ID: "s1", DriverID: "d3", Capacity: 4, Junctions: []string{"A"}}, repository.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.shuttles.Register(ctx, tt.req); !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestShuttleService_AdvanceJunctionEndsRun(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	// s1 starts at Chevron, three stops from the end.
	var s *domain.Shuttle
	var err error
	for i := 0; i < 3; i++ {
		if s, err = env.shuttles.AdvanceJunction(ctx, "s1"); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	if s.CurrentJunction() != "Victoria Island" || s.Status != domain.ShuttleStatusEnded {
		t.Fatalf("expected ended at Victoria Island, got %s %s", s.CurrentJunction(), s.Status)
	}

	again, err := env.shuttles.AdvanceJunction(ctx, "s1")
	if err != nil {
		t.Fatalf("advance past end: %v", err)
	}
	if again.JunctionIndex != s.JunctionIndex {
		t.Error("advancing an ended run should not move it")
	}

	ride := env.book(t, domain.VehicleClassBus, "Ajah", "Ikoyi", domain.PaymentMethodCash)
	if _, err := env.dispatch.AssignShuttle(ctx, ride.ID, "s1", 5); !errors.Is(err, domain.ErrShuttleEnded) {
		t.Errorf("ended run: expected ErrShuttleEnded, got %v", err)
	}
	if found, _ := env.dispatch.FindEligibleShuttles(ctx, domain.VehicleClassBus, "Ikoyi"); len(found) != 0 {
		t.Errorf("ended run still eligible: %v", shuttleIDs(found))
	}

	if _, err := env.shuttles.AdvanceJunction(ctx, ""); !errors.Is(err, ErrInvalidShuttleID) {
		t.Errorf("empty id: expected ErrInvalidShuttleID, got %v", err)
	}
}
