package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"instantride/internal/handler"
	"instantride/internal/logger"
	"instantride/internal/middleware"
	"instantride/internal/realtime"
	"instantride/internal/redis"
	"instantride/internal/repository/memory"
	"instantride/internal/route"
	"instantride/internal/service"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	token   string
	gateway *service.MockGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	store := memory.NewStore()
	pricing := service.NewPricingRegistry(store.Pricing(), log)
	if err := service.Seed(ctx, store, pricing, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	hub := realtime.NewHub(time.Second, log)
	t.Cleanup(hub.Close)
	notifications := service.NewNotificationService(log, hub)
	t.Cleanup(notifications.Wait)

	loc := time.UTC
	gateway := service.NewMockGateway()
	payments := service.NewPaymentService(store, gateway, notifications, nil, log)
	rides := service.NewRideService(store, pricing, route.NewFixedProvider(nil), payments, notifications, nil, log)
	dispatch := service.NewDispatchService(store, redis.NewLocalLockStore(), notifications, nil, log, time.Second, 0)
	queries := service.NewQueryService(store, loc)

	router := NewRouter(RouterDeps{
		RideHandler:     handler.NewRideHandler(rides, payments, queries, hub),
		DispatchHandler: handler.NewDispatchHandler(dispatch),
		DriverHandler:   handler.NewDriverHandler(service.NewDriverService(store, log)),
		ShuttleHandler:  handler.NewShuttleHandler(service.NewShuttleService(store, log)),
		PricingHandler:  handler.NewPricingHandler(pricing, log),
		PaymentHandler:  handler.NewPaymentHandler(payments),
		ReportHandler:   handler.NewReportHandler(queries, loc),
		Responses:       redis.NewLocalResponseStore(),
		AdminJWTSecret:  testSecret,
		Logger:          log,
	})

	token, err := middleware.IssueAdminToken(testSecret, "router-test", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testServer{router: router, token: token, gateway: gateway}
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (s *testServer) book(t *testing.T, class, method string) handler.RideResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/rides", handler.BookRideRequest{
		VehicleClass:  class,
		Pickup:        "Ajah",
		Dropoff:       "Lekki Phase 1",
		PaymentMethod: method,
	}, false)
	if w.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[handler.RideResponse](t, w)
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, false)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRouter_EstimateFare(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	tests := []struct {
		name         string
		body         map[string]any
		expectedCode int
		expectedFare int64
	}{
		{"car route", map[string]any{"vehicle_class": "car", "pickup": "Ajah", "dropoff": "VI"}, http.StatusOK, 5150},
		{"bus route", map[string]any{"vehicle_class": "bus", "pickup": "Ajah", "dropoff": "VI"}, http.StatusOK, 2500},
		{"explicit trip", map[string]any{"vehicle_class": "car", "distance_km": 0, "duration_min": 0}, http.StatusOK, 1800},
		{"unknown class", map[string]any{"vehicle_class": "boat", "pickup": "Ajah", "dropoff": "VI"}, http.StatusBadRequest, 0},
		{"missing pickup", map[string]any{"vehicle_class": "car", "dropoff": "VI"}, http.StatusBadRequest, 0},
		{"negative distance", map[string]any{"vehicle_class": "car", "distance_km": -1, "duration_min": 3}, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/fares/estimate", tt.body, false)
			if w.Code != tt.expectedCode {
				t.Fatalf("expected %d, got %d: %s", tt.expectedCode, w.Code, w.Body.String())
			}
			if tt.expectedCode != http.StatusOK {
				return
			}
			got := decode[handler.EstimateFareResponse](t, w)
			if got.Fare != tt.expectedFare {
				t.Errorf("expected fare %d, got %d", tt.expectedFare, got.Fare)
			}
			if got.SnapshotID == "" {
				t.Error("expected pricing snapshot id")
			}
		})
	}
}

func TestRouter_BookAndTrack(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	ride := s.book(t, "car", "cash")
	if ride.Status != "requested" || ride.EstimatedFare != 5150 || ride.FareDisplay != "₦5,150" {
		t.Errorf("unexpected booking: %+v", ride)
	}

	w := s.do(t, http.MethodGet, "/v1/rides/"+ride.ID, nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/rides/code/"+ride.PublicCode, nil, false)
	if got := decode[handler.RideResponse](t, w); got.ID != ride.ID {
		t.Errorf("expected ride %s by code, got %s", ride.ID, got.ID)
	}

	w = s.do(t, http.MethodGet, "/v1/rides/missing", nil, false)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w = s.do(t, http.MethodGet, "/v1/rides/missing/track", nil, false)
	if w.Code != http.StatusNotFound {
		t.Errorf("track: expected 404, got %d", w.Code)
	}
}

func TestRouter_BookIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	body := handler.BookRideRequest{VehicleClass: "bus", Pickup: "VGC", Dropoff: "Ikoyi Bridge", PaymentMethod: "cash"}

	first := s.do(t, http.MethodPost, "/v1/rides", body, false, "Idempotency-Key", "checkout-1")
	second := s.do(t, http.MethodPost, "/v1/rides", body, false, "Idempotency-Key", "checkout-1")

	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected 201 twice, got %d and %d", first.Code, second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replayed response")
	}
	a := decode[handler.RideResponse](t, first)
	b := decode[handler.RideResponse](t, second)
	if a.ID != b.ID {
		t.Errorf("expected one ride, got %s and %s", a.ID, b.ID)
	}
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/admin/drivers", nil, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/admin/drivers", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	drivers := decode[[]handler.DriverResponse](t, w)
	if len(drivers) != 3 || drivers[0].ID != "d1" {
		t.Errorf("unexpected roster: %+v", drivers)
	}
}

func TestRouter_GatewayRideLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	ride := s.book(t, "car", "gateway")
	if ride.PaymentStatus != "pending" || ride.TxRef == "" {
		t.Fatalf("expected pending gateway payment, got %+v", ride)
	}
	path := "/v1/admin/rides/" + ride.ID

	// Busy driver and class mismatch are refused.
	w := s.do(t, http.MethodPost, path+"/assign-driver", handler.AssignRequest{DriverID: "d2"}, true)
	if w.Code != http.StatusConflict {
		t.Errorf("busy driver: expected 409, got %d", w.Code)
	}
	w = s.do(t, http.MethodPost, path+"/assign-driver", handler.AssignRequest{DriverID: "d3"}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bus driver: expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, path+"/assign-driver", handler.AssignRequest{DriverID: "d1", ETAMin: 4}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	assigned := decode[handler.RideResponse](t, w)
	if assigned.Status != "assigned" || assigned.Assignment == nil || assigned.Assignment.DriverID != "d1" {
		t.Errorf("unexpected assignment: %+v", assigned)
	}

	w = s.do(t, http.MethodPost, path+"/assign-driver", handler.AssignRequest{DriverID: "d1"}, true)
	if w.Code != http.StatusConflict {
		t.Errorf("reassign: expected 409, got %d", w.Code)
	}

	for _, st := range []string{"arrived", "in_trip"} {
		w = s.do(t, http.MethodPost, path+"/status", handler.StatusRequest{Status: st}, true)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", st, w.Code)
		}
	}

	w = s.do(t, http.MethodPost, path+"/status", handler.StatusRequest{Status: "completed"}, true)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("unpaid completion: expected 402, got %d", w.Code)
	}

	// A callback the gateway does not back up changes nothing.
	w = s.do(t, http.MethodPost, "/v1/payments/callback", handler.CallbackRequest{TxRef: ride.TxRef, Status: "success"}, false)
	if w.Code != http.StatusConflict {
		t.Fatalf("unconfirmed callback: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, path+"/status", handler.StatusRequest{Status: "completed"}, true)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("completion after unconfirmed callback: expected 402, got %d", w.Code)
	}

	if err := s.gateway.Settle(ride.TxRef, true); err != nil {
		t.Fatalf("settle: %v", err)
	}
	w = s.do(t, http.MethodPost, "/v1/payments/callback", handler.CallbackRequest{TxRef: ride.TxRef, Status: "success"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("callback: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, path+"/status", handler.StatusRequest{Status: "completed"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("completion: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	done := decode[handler.RideResponse](t, w)
	if done.Progress != 100 || done.PaymentStatus != "success" {
		t.Errorf("unexpected completed ride: %+v", done)
	}

	w = s.do(t, http.MethodPost, "/v1/rides/"+ride.ID+"/cancel", nil, false)
	if w.Code != http.StatusConflict {
		t.Errorf("cancel completed: expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/admin/payments", nil, true)
	records := decode[[]handler.PaymentRecordResponse](t, w)
	if len(records) == 0 || records[0].TxRef != ride.TxRef {
		t.Errorf("expected payment record for %s, got %+v", ride.TxRef, records)
	}
}

func TestRouter_ShuttleSeat(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	ride := s.book(t, "bus", "cash")
	w := s.do(t, http.MethodPost, "/v1/admin/rides/"+ride.ID+"/auto-assign", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("auto-assign: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[handler.RideResponse](t, w)
	if got.Assignment == nil || got.Assignment.ShuttleID != "s1" {
		t.Fatalf("expected seat on s1, got %+v", got.Assignment)
	}
	// Six walk-ons hold seats 1-6.
	if got.Assignment.Seat != 7 {
		t.Errorf("expected seat 7, got %d", got.Assignment.Seat)
	}

	w = s.do(t, http.MethodGet, "/v1/admin/shuttles/s1", nil, true)
	if sh := decode[handler.ShuttleResponse](t, w); sh.Filled != 7 || sh.SeatsLeft != 11 {
		t.Errorf("unexpected shuttle: %+v", sh)
	}
}

func TestRouter_PricingUpdate(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/v1/admin/pricing/car",
		map[string]float64{"base": 1500, "per_km": 250, "per_min": 30, "min": 1800}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	snap := decode[handler.SnapshotResponse](t, w)

	w = s.do(t, http.MethodPost, "/v1/fares/estimate", map[string]any{"vehicle_class": "car", "pickup": "Ajah", "dropoff": "VI"}, false)
	est := decode[handler.EstimateFareResponse](t, w)
	if est.Fare != 5450 || est.SnapshotID != snap.ID {
		t.Errorf("expected 5450 under %s, got %d under %s", snap.ID, est.Fare, est.SnapshotID)
	}

	w = s.do(t, http.MethodPut, "/v1/admin/pricing/car",
		map[string]float64{"base": -1, "per_km": 250, "per_min": 30, "min": 1800}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative base: expected 400, got %d", w.Code)
	}
}

func TestRouter_DailyReport(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.book(t, "car", "cash")

	w := s.do(t, http.MethodGet, "/v1/admin/reports/daily", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if report := decode[service.DailyReport](t, w); report.Count == 0 {
		t.Errorf("expected rides today, got %+v", report)
	}

	w = s.do(t, http.MethodGet, "/v1/admin/reports/daily?date=14-03-2026", nil, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", w.Code)
	}
}
