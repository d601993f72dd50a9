package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"instantride/internal/domain"
	"instantride/internal/repository"
	"instantride/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// badRequest rejects a body or query that could not be parsed.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// mapErrorToHTTPStatus maps error kinds to HTTP status codes. Specific
// sentinels are checked before the kinds they wrap.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// The gateway, not the caller, is at fault.
	case errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusBadGateway

	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest

	// Capacity before Conflict: a full shuttle is both.
	case errors.Is(err, domain.ErrCapacity):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, domain.ErrPaymentIncomplete):
		return http.StatusPaymentRequired

	default:
		return http.StatusInternalServerError
	}
}

// AssignmentResponse describes who is serving a ride.
type AssignmentResponse struct {
	DriverID   string `json:"driver_id,omitempty"`
	ShuttleID  string `json:"shuttle_id,omitempty"`
	Seat       int    `json:"seat,omitempty"`
	ETAMin     int    `json:"eta_min"`
	AssignedAt string `json:"assigned_at"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                string              `json:"id"`
	PublicCode        string              `json:"public_code"`
	VehicleClass      string              `json:"vehicle_class"`
	Pickup            string              `json:"pickup"`
	Dropoff           string              `json:"dropoff"`
	Note              string              `json:"note,omitempty"`
	EstimatedFare     int64               `json:"estimated_fare"`
	FareDisplay       string              `json:"fare_display"`
	DistanceKm        float64             `json:"distance_km"`
	DurationMin       float64             `json:"duration_min"`
	PricingSnapshotID string              `json:"pricing_snapshot_id"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	TxRef             string              `json:"tx_ref,omitempty"`
	CashConfirmed     bool                `json:"cash_confirmed"`
	Status            string              `json:"status"`
	StatusLabel       string              `json:"status_label"`
	Progress          int                 `json:"progress"`
	Assignment        *AssignmentResponse `json:"assignment,omitempty"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
	CompletedAt       string              `json:"completed_at,omitempty"`
	CancelledAt       string              `json:"cancelled_at,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toRideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:                r.ID,
		PublicCode:        r.PublicCode,
		VehicleClass:      string(r.VehicleClass),
		Pickup:            r.Pickup,
		Dropoff:           r.Dropoff,
		Note:              r.Note,
		EstimatedFare:     r.EstimatedFare,
		FareDisplay:       service.FormatNaira(r.EstimatedFare),
		DistanceKm:        r.DistanceKm,
		DurationMin:       r.DurationMin,
		PricingSnapshotID: r.PricingSnapshotID,
		PaymentMethod:     string(r.PaymentMethod),
		PaymentStatus:     string(r.PaymentStatus),
		TxRef:             r.TxRef,
		CashConfirmed:     r.CashConfirmed,
		Status:            string(r.Status),
		StatusLabel:       r.Status.Label(),
		Progress:          r.Status.Progress(),
		CreatedAt:         formatTime(r.CreatedAt),
		UpdatedAt:         formatTime(r.UpdatedAt),
		CompletedAt:       formatTime(r.CompletedAt),
		CancelledAt:       formatTime(r.CancelledAt),
	}
	if a := r.Assignment; a != nil {
		resp.Assignment = &AssignmentResponse{
			DriverID:   a.DriverID,
			ShuttleID:  a.ShuttleID,
			ETAMin:     a.ETAMin,
			AssignedAt: formatTime(a.AssignedAt),
		}
		if a.IsShuttle() {
			resp.Assignment.Seat = a.Seat + 1
		}
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	VehicleClass string `json:"vehicle_class"`
	Vehicle      string `json:"vehicle"`
	Plate        string `json:"plate"`
	Status       string `json:"status"`
}

func toDriverResponses(drivers []*domain.Driver) []DriverResponse {
	out := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, toDriverResponse(d))
	}
	return out
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		Contact:      d.Contact,
		VehicleClass: string(d.VehicleClass),
		Vehicle:      d.Vehicle,
		Plate:        d.Plate,
		Status:       string(d.Status),
	}
}

// ShuttleResponse is the HTTP representation of a shuttle run.
type ShuttleResponse struct {
	ID               string   `json:"id"`
	DriverID         string   `json:"driver_id"`
	Capacity         int      `json:"capacity"`
	Filled           int      `json:"filled"`
	SeatsLeft        int      `json:"seats_left"`
	Junctions        []string `json:"junctions"`
	JunctionIndex    int      `json:"junction_index"`
	CurrentJunction  string   `json:"current_junction"`
	FinalDestination string   `json:"final_destination"`
	Status           string   `json:"status"`
}

func toShuttleResponse(s *domain.Shuttle) ShuttleResponse {
	return ShuttleResponse{
		ID:               s.ID,
		DriverID:         s.DriverID,
		Capacity:         s.Capacity,
		Filled:           s.Filled,
		SeatsLeft:        s.SeatsLeft(),
		Junctions:        s.Junctions,
		JunctionIndex:    s.JunctionIndex,
		CurrentJunction:  s.CurrentJunction(),
		FinalDestination: s.FinalDestination(),
		Status:           string(s.Status),
	}
}

func toShuttleResponses(shuttles []*domain.Shuttle) []ShuttleResponse {
	out := make([]ShuttleResponse, 0, len(shuttles))
	for _, s := range shuttles {
		out = append(out, toShuttleResponse(s))
	}
	return out
}
