package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/redis"
	"instantride/internal/repository"
	"instantride/internal/repository/memory"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// ──────────────────────────────────────────────
// MOCK ROUTE PROVIDER
// ──────────────────────────────────────────────

// MockRouteProvider returns one estimate for every trip.
type MockRouteProvider struct {
	Estimate  domain.RouteEstimate
	Err       error
	CallCount int32
}

func (m *MockRouteProvider) EstimateRoute(_ context.Context, _ domain.VehicleClass, _, _ string) (domain.RouteEstimate, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if m.Err != nil {
		return domain.RouteEstimate{}, m.Err
	}
	return m.Estimate, nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

type driverMessage struct {
	DriverID string
	Summary  RideSummary
}

type customerMessage struct {
	RideID  string
	Message string
}

// MockNotifier records every delivery.
type MockNotifier struct {
	mu        sync.Mutex
	drivers   []driverMessage
	customers []customerMessage

	DriverCallCount   int32
	CustomerCallCount int32

	// Error injection
	Err error
}

func (m *MockNotifier) NotifyDriver(_ context.Context, driverID string, summary RideSummary) error {
	atomic.AddInt32(&m.DriverCallCount, 1)
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers = append(m.drivers, driverMessage{DriverID: driverID, Summary: summary})
	return nil
}

func (m *MockNotifier) NotifyCustomer(_ context.Context, rideID string, message string) error {
	atomic.AddInt32(&m.CustomerCallCount, 1)
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = append(m.customers, customerMessage{RideID: rideID, Message: message})
	return nil
}

func (m *MockNotifier) DriverMessages() []driverMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driverMessage(nil), m.drivers...)
}

func (m *MockNotifier) CustomerMessages() []customerMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]customerMessage(nil), m.customers...)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore wraps the in-process lock store and counts calls. Keys in
// Held are reported as taken by someone else.
type MockLockStore struct {
	inner *redis.LocalLockStore
	Held  map[string]bool

	AcquireCallCount int32
	ReleaseCallCount int32
}

func NewMockLockStore() *MockLockStore {
	return &MockLockStore{inner: redis.NewLocalLockStore(), Held: map[string]bool{}}
}

func (m *MockLockStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.Held[key] {
		return "", false, nil
	}
	return m.inner.AcquireLock(ctx, key, ttl)
}

func (m *MockLockStore) ReleaseLock(ctx context.Context, key, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	return m.inner.ReleaseLock(ctx, key, token)
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// FailingGateway rejects every call.
type FailingGateway struct{}

var errGatewayDown = errors.New("gateway down")

func (FailingGateway) InitiatePayment(context.Context, string, int64) (string, error) {
	return "", errGatewayDown
}

func (FailingGateway) VerifyPayment(context.Context, string) (domain.PaymentStatus, error) {
	return "", errGatewayDown
}

// ──────────────────────────────────────────────
// TEST ENVIRONMENT
// ──────────────────────────────────────────────

type testEnv struct {
	store    *memory.Store
	pricing  *PricingRegistry
	routes   *MockRouteProvider
	gateway  *MockGateway
	notifier *MockNotifier
	notify   *NotificationService
	locks    *MockLockStore
	rides    *RideService
	payments *PaymentService
	dispatch *DispatchService
	drivers  *DriverService
	shuttles *ShuttleService
	queries  *QueryService
}

// newTestEnv wires every service over a seeded in-memory store with a fixed
// clock.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	env := &testEnv{
		store:    memory.NewStore(),
		routes:   &MockRouteProvider{Estimate: domain.RouteEstimate{DistanceKm: 12.4, DurationMin: 28}},
		gateway:  NewMockGateway(),
		notifier: &MockNotifier{},
		locks:    NewMockLockStore(),
	}
	env.gateway.now = fixedClock
	env.pricing = NewPricingRegistry(env.store.Pricing(), log)
	env.pricing.now = fixedClock
	env.notify = NewNotificationService(log, env.notifier)
	env.payments = NewPaymentService(env.store, env.gateway, env.notify, nil, log)
	env.payments.now = fixedClock
	env.rides = NewRideService(env.store, env.pricing, env.routes, env.payments, env.notify, nil, log)
	env.rides.now = fixedClock
	env.dispatch = NewDispatchService(env.store, env.locks, env.notify, nil, log, time.Minute, 0)
	env.dispatch.now = fixedClock
	env.drivers = NewDriverService(env.store, log)
	env.drivers.now = fixedClock
	env.shuttles = NewShuttleService(env.store, log)
	env.shuttles.now = fixedClock
	env.queries = NewQueryService(env.store, time.UTC)

	if err := Seed(ctx, env.store, env.pricing, testNow); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return env
}

func (e *testEnv) book(t *testing.T, class domain.VehicleClass, pickup, dropoff string, method domain.PaymentMethod) *domain.Ride {
	t.Helper()
	ride, err := e.rides.Book(context.Background(), BookRideRequest{
		VehicleClass:  class,
		Pickup:        pickup,
		Dropoff:       dropoff,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return ride
}

func (e *testEnv) driver(t *testing.T, id string) *domain.Driver {
	t.Helper()
	d, err := e.store.Drivers().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get driver %s: %v", id, err)
	}
	return d
}

func (e *testEnv) shuttle(t *testing.T, id string) *domain.Shuttle {
	t.Helper()
	s, err := e.store.Shuttles().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get shuttle %s: %v", id, err)
	}
	return s
}

func (e *testEnv) ride(t *testing.T, id string) *domain.Ride {
	t.Helper()
	r, err := e.store.Rides().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get ride %s: %v", id, err)
	}
	return r
}

// settle decides the gateway outcome of txRef before its callback arrives.
func (e *testEnv) settle(t *testing.T, txRef string, succeeded bool) {
	t.Helper()
	if err := e.gateway.Settle(txRef, succeeded); err != nil {
		t.Fatalf("settle %s: %v", txRef, err)
	}
}

var _ repository.Store = (*memory.Store)(nil)
