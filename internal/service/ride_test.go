package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"instantride/internal/domain"
	"instantride/internal/repository"
)

func validCreateRequest(env *testEnv, t *testing.T) CreateRideRequest {
	t.Helper()
	q, err := env.pricing.Quote(domain.VehicleClassCar, 12.4, 28)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	return CreateRideRequest{
		VehicleClass:  domain.VehicleClassCar,
		Pickup:        "Lekki Phase 1",
		Dropoff:       "Ikoyi",
		PaymentMethod: domain.PaymentMethodCash,
		Quote:         q,
	}
}

func TestRideService_Create(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	req := validCreateRequest(env, t)

	ride, err := env.rides.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if ride.Status != domain.RideStatusRequested {
		t.Errorf("expected requested, got %s", ride.Status)
	}
	if ride.PaymentStatus != domain.PaymentStatusNotApplicable {
		t.Errorf("cash ride payment status = %s, want n/a", ride.PaymentStatus)
	}
	if ride.EstimatedFare != 5150 || ride.PricingSnapshotID != req.Quote.SnapshotID {
		t.Errorf("fare %d from %s, want 5150 from %s", ride.EstimatedFare, ride.PricingSnapshotID, req.Quote.SnapshotID)
	}
	if !regexp.MustCompile(`^PTG-\d{6}$`).MatchString(ride.PublicCode) {
		t.Errorf("unexpected public code %q", ride.PublicCode)
	}
	if ride.ID == "" || ride.ID == ride.PublicCode {
		t.Errorf("internal id should be separate from public code, got %q", ride.ID)
	}

	byCode, err := env.rides.GetByPublicCode(context.Background(), " "+ride.PublicCode+" ")
	if err != nil || byCode.ID != ride.ID {
		t.Errorf("lookup by public code = %v, %v", byCode, err)
	}
}

func TestRideService_CreateGatewayStartsPending(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	req := validCreateRequest(env, t)
	req.PaymentMethod = domain.PaymentMethodGateway

	ride, err := env.rides.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ride.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected pending, got %s", ride.PaymentStatus)
	}
}

func TestRideService_CreateValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(r *CreateRideRequest)
	}{
		{"empty pickup", func(r *CreateRideRequest) { r.Pickup = "  " }},
		{"empty dropoff", func(r *CreateRideRequest) { r.Dropoff = "" }},
		{"same place", func(r *CreateRideRequest) { r.Dropoff = " lekki PHASE 1 " }},
		{"unknown class", func(r *CreateRideRequest) { r.VehicleClass = "boat" }},
		{"unknown payment", func(r *CreateRideRequest) { r.PaymentMethod = "card" }},
		{"quote for other class", func(r *CreateRideRequest) { r.Quote.VehicleClass = domain.VehicleClassBus }},
		{"negative fare", func(r *CreateRideRequest) { r.Quote.Fare = -50 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest(env, t)
			tt.mutate(&req)
			if _, err := env.rides.Create(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}
}

func TestRideService_CreateDetectsPublicCodeCollisions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	var calls int
	env.rides.newCode = func() (string, error) {
		calls++
		return "PTG-482019", nil // held by the seeded ride
	}

	_, err := env.rides.Create(context.Background(), validCreateRequest(env, t))
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if calls != publicCodeAttempts {
		t.Errorf("expected %d attempts, got %d", publicCodeAttempts, calls)
	}

	codes := []string{"PTG-482019", "PTG-000001"}
	env.rides.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	ride, err := env.rides.Create(context.Background(), validCreateRequest(env, t))
	if err != nil {
		t.Fatalf("create after one collision: %v", err)
	}
	if ride.PublicCode != "PTG-000001" {
		t.Errorf("expected the second code, got %s", ride.PublicCode)
	}
}

func TestRideService_BookGatewayInitiatesPayment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Victoria Island", domain.PaymentMethodGateway)

	if ride.EstimatedFare != 5150 {
		t.Errorf("expected fare 5150, got %d", ride.EstimatedFare)
	}
	if ride.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected pending, got %s", ride.PaymentStatus)
	}
	if !regexp.MustCompile(`^PTG_TX_\d+_\d{1,4}$`).MatchString(ride.TxRef) {
		t.Errorf("unexpected tx ref %q", ride.TxRef)
	}
}

func TestRideService_BookSurvivesGatewayOutage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.payments.gateway = FailingGateway{}

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "VGC", domain.PaymentMethodGateway)
	if ride.TxRef != "" || ride.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("ride should stay pending without a reference, got %s/%q", ride.PaymentStatus, ride.TxRef)
	}
}

func TestRideService_BookRouteFailureIsInvalidInput(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.routes.Err = errors.New("ZERO_RESULTS")

	_, err := env.rides.Book(context.Background(), BookRideRequest{
		VehicleClass:  domain.VehicleClassCar,
		Pickup:        "Nowhere",
		Dropoff:       "Elsewhere",
		PaymentMethod: domain.PaymentMethodCash,
	})
	if !errors.Is(err, domain.ErrInvalidInput) || !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestRideService_BookValidatesBeforeRouting(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.rides.Book(context.Background(), BookRideRequest{
		VehicleClass:  domain.VehicleClassCar,
		Pickup:        "VGC",
		Dropoff:       "vgc",
		PaymentMethod: domain.PaymentMethodCash,
	})
	if !errors.Is(err, domain.ErrSameLocation) {
		t.Errorf("expected ErrSameLocation, got %v", err)
	}
	if env.routes.CallCount != 0 {
		t.Error("route provider should not be called for invalid locations")
	}
}

func TestRideService_QuotedFareSurvivesPricingUpdate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodCash)

	doubled := carRule
	doubled.Base, doubled.PerKm = 2400, 500
	if _, err := env.pricing.Update(ctx, domain.VehicleClassCar, doubled); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := env.dispatch.AssignDriver(ctx, ride.ID, "d1", 5); err != nil {
		t.Fatalf("assign: %v", err)
	}

	got := env.ride(t, ride.ID)
	if got.EstimatedFare != ride.EstimatedFare {
		t.Errorf("fare changed from %d to %d", ride.EstimatedFare, got.EstimatedFare)
	}
	snap, err := env.pricing.Snapshot(got.PricingSnapshotID)
	if err != nil || snap.Rule != carRule {
		t.Errorf("ride should still reference the launch rule, got %+v, %v", snap, err)
	}
}

func TestRideService_FullLifecycleReleasesDriver(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodCash)
	if _, err := env.dispatch.AssignDriver(ctx, ride.ID, "d1", 4); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if env.driver(t, "d1").Status != domain.DriverStatusBusy {
		t.Fatal("driver should be busy after assignment")
	}

	for _, to := range []domain.RideStatus{domain.RideStatusArrived, domain.RideStatusInTrip, domain.RideStatusCompleted} {
		if _, err := env.rides.AdvanceStatus(ctx, ride.ID, to); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}

	got := env.ride(t, ride.ID)
	if got.Status != domain.RideStatusCompleted || got.CompletedAt.IsZero() {
		t.Errorf("expected completed with timestamp, got %s", got.Status)
	}
	if env.driver(t, "d1").Status != domain.DriverStatusAvailable {
		t.Error("driver should be available after completion")
	}
}

func TestRideService_AdvanceStatusRejectsSkips(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodCash)

	tests := []struct {
		to       domain.RideStatus
		expected error
	}{
		{domain.RideStatusInTrip, domain.ErrInvalidState},
		{domain.RideStatusCompleted, domain.ErrInvalidState},
		{domain.RideStatusArrived, domain.ErrInvalidState},
		{domain.RideStatusAssigned, domain.ErrAssignmentRequired},
	}
	for _, tt := range tests {
		if _, err := env.rides.AdvanceStatus(ctx, ride.ID, tt.to); !errors.Is(err, tt.expected) {
			t.Errorf("advance to %s: expected %v, got %v", tt.to, tt.expected, err)
		}
	}
	if got := env.ride(t, ride.ID); got.Status != domain.RideStatusRequested || got.Version != ride.Version {
		t.Errorf("rejected transitions must not write, got %s v%d", got.Status, got.Version)
	}
}

func TestRideService_GatewayCompletionNeedsPayment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodGateway)
	if _, err := env.dispatch.AssignDriver(ctx, ride.ID, "d1", 4); err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, _ = env.rides.AdvanceStatus(ctx, ride.ID, domain.RideStatusArrived)
	_, _ = env.rides.AdvanceStatus(ctx, ride.ID, domain.RideStatusInTrip)

	if _, err := env.rides.AdvanceStatus(ctx, ride.ID, domain.RideStatusCompleted); !errors.Is(err, domain.ErrPaymentIncomplete) {
		t.Fatalf("expected PaymentIncomplete, got %v", err)
	}
	if env.driver(t, "d1").Status != domain.DriverStatusBusy {
		t.Error("blocked completion must not release the driver")
	}

	if _, err := env.rides.RecordGatewayResult(ctx, ride.ID, ride.TxRef, true); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if _, err := env.rides.AdvanceStatus(ctx, ride.ID, domain.RideStatusCompleted); err != nil {
		t.Fatalf("complete after payment: %v", err)
	}
}

func TestRideService_CancelIsIdempotentAndReleasesDriver(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodCash)
	if _, err := env.dispatch.AssignDriver(ctx, ride.ID, "d1", 4); err != nil {
		t.Fatalf("assign: %v", err)
	}

	first, err := env.rides.Cancel(ctx, ride.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if env.driver(t, "d1").Status != domain.DriverStatusAvailable {
		t.Error("cancel should release the driver")
	}

	second, err := env.rides.Cancel(ctx, ride.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if second.Version != first.Version || second.Status != domain.RideStatusCancelled {
		t.Errorf("second cancel changed state: v%d -> v%d", first.Version, second.Version)
	}

	if _, err := env.rides.AdvanceStatus(ctx, ride.ID, domain.RideStatusArrived); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("cancelled ride must not advance, got %v", err)
	}
}

func TestRideService_CancelCompletedIsInvalidState(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	ride := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodCash)
	_, _ = env.dispatch.AssignDriver(ctx, ride.ID, "d1", 4)
	for _, to := range []domain.RideStatus{domain.RideStatusArrived, domain.RideStatusInTrip, domain.RideStatusCompleted} {
		if _, err := env.rides.AdvanceStatus(ctx, ride.ID, to); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}

	if _, err := env.rides.Cancel(ctx, ride.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

// Booking a bus ride at the seeded shuttle's rates, seating it on the run
// and cancelling it must leave the shuttle exactly as it was.
func TestRideService_ShuttleSeatScenario(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.routes.Estimate = domain.RouteEstimate{DistanceKm: 10.8, DurationMin: 34}

	ride := env.book(t, domain.VehicleClassBus, "A", "B", domain.PaymentMethodCash)
	if ride.EstimatedFare != 2500 {
		t.Fatalf("expected fare 2500, got %d", ride.EstimatedFare)
	}
	if got := env.shuttle(t, "s1").Filled; got != 6 {
		t.Fatalf("seeded shuttle should have 6 seats taken, got %d", got)
	}

	assigned, err := env.dispatch.AssignShuttle(ctx, ride.ID, "s1", 9)
	if err != nil {
		t.Fatalf("assign shuttle: %v", err)
	}
	if !assigned.Assignment.IsShuttle() || assigned.Assignment.DriverID != "" {
		t.Errorf("expected a shuttle-only assignment, got %+v", assigned.Assignment)
	}
	s := env.shuttle(t, "s1")
	if s.Filled != 7 || len(s.AcceptedRideIDs) != 7 {
		t.Fatalf("expected 7 seats taken, got filled=%d ids=%d", s.Filled, len(s.AcceptedRideIDs))
	}

	if _, err := env.rides.Cancel(ctx, ride.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	s = env.shuttle(t, "s1")
	if s.Filled != 6 || len(s.AcceptedRideIDs) != 6 {
		t.Errorf("expected 6 seats after cancel, got filled=%d ids=%d", s.Filled, len(s.AcceptedRideIDs))
	}
}

func TestRideService_PaymentMutations(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	cash := env.book(t, domain.VehicleClassCar, "Ajah", "Ikoyi", domain.PaymentMethodCash)
	gateway := env.book(t, domain.VehicleClassCar, "Ajah", "VGC", domain.PaymentMethodGateway)

	confirmed, err := env.rides.ConfirmCashPaid(ctx, cash.ID)
	if err != nil || !confirmed.CashConfirmed || confirmed.Status != domain.RideStatusRequested {
		t.Errorf("confirm cash = %+v, %v", confirmed, err)
	}
	if _, err := env.rides.ConfirmCashPaid(ctx, gateway.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("confirm cash on gateway ride: expected InvalidState, got %v", err)
	}
	if _, err := env.rides.RecordGatewayResult(ctx, cash.ID, "PTG_TX_1_1", true); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("gateway result on cash ride: expected Conflict, got %v", err)
	}

	failed, err := env.rides.RecordGatewayResult(ctx, gateway.ID, gateway.TxRef, false)
	if err != nil || failed.PaymentStatus != domain.PaymentStatusFailed {
		t.Fatalf("record failure = %+v, %v", failed, err)
	}
	switched, err := env.rides.SwitchToCash(ctx, gateway.ID)
	if err != nil {
		t.Fatalf("switch to cash: %v", err)
	}
	if switched.PaymentMethod != domain.PaymentMethodCash || switched.PaymentStatus != domain.PaymentStatusNotApplicable {
		t.Errorf("unexpected payment after switch: %s/%s", switched.PaymentMethod, switched.PaymentStatus)
	}
}

func TestRideService_GetValidatesAndReportsMissing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.rides.Get(ctx, ""); !errors.Is(err, ErrInvalidRideID) {
		t.Errorf("expected ErrInvalidRideID, got %v", err)
	}
	if _, err := env.rides.Get(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.rides.Cancel(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound on cancel, got %v", err)
	}
}
