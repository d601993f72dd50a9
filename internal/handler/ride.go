package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"instantride/internal/domain"
	"instantride/internal/realtime"
	"instantride/internal/repository"
	"instantride/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService    *service.RideService
	paymentService *service.PaymentService
	queryService   *service.QueryService
	hub            *realtime.Hub
}

// NewRideHandler creates a new RideHandler. hub may be nil, which disables
// live tracking.
func NewRideHandler(
	rideService *service.RideService,
	paymentService *service.PaymentService,
	queryService *service.QueryService,
	hub *realtime.Hub,
) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		paymentService: paymentService,
		queryService:   queryService,
		hub:            hub,
	}
}

// EstimateFareRequest is the HTTP request body for a fare estimate. When
// distance and duration are given the route provider is skipped.
type EstimateFareRequest struct {
	VehicleClass string   `json:"vehicle_class"`
	Pickup       string   `json:"pickup"`
	Dropoff      string   `json:"dropoff"`
	DistanceKm   *float64 `json:"distance_km,omitempty"`
	DurationMin  *float64 `json:"duration_min,omitempty"`
}

// EstimateFareResponse is the HTTP response for a fare estimate.
type EstimateFareResponse struct {
	VehicleClass string  `json:"vehicle_class"`
	DistanceKm   float64 `json:"distance_km"`
	DurationMin  float64 `json:"duration_min"`
	Fare         int64   `json:"fare"`
	FareDisplay  string  `json:"fare_display"`
	SnapshotID   string  `json:"pricing_snapshot_id"`
}

// BookRideRequest is the HTTP request body for booking a ride.
type BookRideRequest struct {
	VehicleClass  string `json:"vehicle_class"`
	Pickup        string `json:"pickup"`
	Dropoff       string `json:"dropoff"`
	Note          string `json:"note,omitempty"`
	PaymentMethod string `json:"payment_method"`
}

// PaymentMethodRequest is the HTTP request body for switching payment method.
type PaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// StatusRequest is the HTTP request body for moving a ride along.
type StatusRequest struct {
	Status string `json:"status"`
}

// EstimateFare handles POST /v1/fares/estimate
func (h *RideHandler) EstimateFare(c *gin.Context) {
	var req EstimateFareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	class, err := domain.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		respondError(c, err)
		return
	}

	var quote domain.Quote
	if req.DistanceKm != nil && req.DurationMin != nil {
		quote, err = h.rideService.Quote(class, *req.DistanceKm, *req.DurationMin)
	} else {
		quote, err = h.rideService.Estimate(c.Request.Context(), class, req.Pickup, req.Dropoff)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateFareResponse{
		VehicleClass: string(quote.VehicleClass),
		DistanceKm:   quote.DistanceKm,
		DurationMin:  quote.DurationMin,
		Fare:         quote.Fare,
		FareDisplay:  service.FormatNaira(quote.Fare),
		SnapshotID:   quote.SnapshotID,
	})
}

// BookRide handles POST /v1/rides
func (h *RideHandler) BookRide(c *gin.Context) {
	var req BookRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	class, err := domain.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		respondError(c, err)
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.rideService.Book(c.Request.Context(), service.BookRideRequest{
		VehicleClass:  class,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		Note:          req.Note,
		PaymentMethod: method,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetRideByCode handles GET /v1/rides/code/:code
func (h *RideHandler) GetRideByCode(c *gin.Context) {
	ride, err := h.rideService.GetByPublicCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	ride, err := h.rideService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ConfirmCash handles POST /v1/rides/:id/cash-confirmation
func (h *RideHandler) ConfirmCash(c *gin.Context) {
	ride, err := h.rideService.ConfirmCashPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// SwitchPaymentMethod handles POST /v1/rides/:id/payment-method. Only a move
// to cash is supported; paying through the gateway again is a retry.
func (h *RideHandler) SwitchPaymentMethod(c *gin.Context) {
	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}

	var ride *domain.Ride
	if method == domain.PaymentMethodCash {
		ride, err = h.rideService.SwitchToCash(c.Request.Context(), c.Param("id"))
	} else {
		ride, err = h.paymentService.Initiate(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// InitiatePayment handles POST /v1/rides/:id/payment
func (h *RideHandler) InitiatePayment(c *gin.Context) {
	ride, err := h.paymentService.Initiate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// TrackRide handles GET /v1/rides/:id/track, upgrading to a websocket that
// streams the ride's notifications.
func (h *RideHandler) TrackRide(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "live tracking is disabled"})
		return
	}
	ride, err := h.rideService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.hub.Serve(c.Writer, c.Request, ride.ID, toRideResponse(ride))
}

// ListRides handles GET /v1/admin/rides?status=&vehicle_class=&payment_method=
func (h *RideHandler) ListRides(c *gin.Context) {
	var filter repository.RideFilter
	if v := c.Query("status"); v != "" {
		st, err := domain.ParseRideStatus(v)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Status = st
	}
	if v := c.Query("vehicle_class"); v != "" {
		class, err := domain.ParseVehicleClass(v)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.VehicleClass = class
	}
	if v := c.Query("payment_method"); v != "" {
		method, err := domain.ParsePaymentMethod(v)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.PaymentMethod = method
	}

	rides, err := h.queryService.ListRides(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// RecentRides handles GET /v1/admin/rides/recent?limit=
func (h *RideHandler) RecentRides(c *gin.Context) {
	limit := cast.ToInt(c.Query("limit"))
	rides, err := h.queryService.RecentRides(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides))
}

// AdvanceStatus handles POST /v1/admin/rides/:id/status
func (h *RideHandler) AdvanceStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	to, err := domain.ParseRideStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.rideService.AdvanceStatus(c.Request.Context(), c.Param("id"), to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
