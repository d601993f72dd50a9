package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"instantride/internal/domain"
	"instantride/internal/service"
)

// DispatchHandler handles admin dispatch requests.
type DispatchHandler struct {
	dispatchService *service.DispatchService
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(dispatchService *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatchService: dispatchService}
}

// AssignRequest is the HTTP request body for the assign endpoints. Zero or
// missing ETA uses the dispatcher default on auto-assign and is raised to
// one minute otherwise.
type AssignRequest struct {
	DriverID  string `json:"driver_id,omitempty"`
	ShuttleID string `json:"shuttle_id,omitempty"`
	ETAMin    int    `json:"eta_min"`
}

// AssignDriver handles POST /v1/admin/rides/:id/assign-driver
func (h *DispatchHandler) AssignDriver(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.dispatchService.AssignDriver(c.Request.Context(), c.Param("id"), req.DriverID, req.ETAMin)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AssignShuttle handles POST /v1/admin/rides/:id/assign-shuttle
func (h *DispatchHandler) AssignShuttle(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.dispatchService.AssignShuttle(c.Request.Context(), c.Param("id"), req.ShuttleID, req.ETAMin)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AutoAssign handles POST /v1/admin/rides/:id/auto-assign
func (h *DispatchHandler) AutoAssign(c *gin.Context) {
	var req AssignRequest
	// An empty body means default ETA.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	ride, err := h.dispatchService.AutoAssign(c.Request.Context(), c.Param("id"), req.ETAMin)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// EligibleDrivers handles GET /v1/admin/drivers/eligible?vehicle_class=
func (h *DispatchHandler) EligibleDrivers(c *gin.Context) {
	class, err := domain.ParseVehicleClass(c.Query("vehicle_class"))
	if err != nil {
		respondError(c, err)
		return
	}

	drivers, err := h.dispatchService.FindEligibleDrivers(c.Request.Context(), class)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponses(drivers))
}

// EligibleShuttles handles GET /v1/admin/shuttles/eligible?pickup=
func (h *DispatchHandler) EligibleShuttles(c *gin.Context) {
	shuttles, err := h.dispatchService.FindEligibleShuttles(c.Request.Context(), domain.VehicleClassBus, c.Query("pickup"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShuttleResponses(shuttles))
}
