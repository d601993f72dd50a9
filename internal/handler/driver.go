package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"instantride/internal/domain"
	"instantride/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	VehicleClass string `json:"vehicle_class"`
	Vehicle      string `json:"vehicle"`
	Plate        string `json:"plate"`
}

// DriverStatusRequest is the HTTP request body for setting driver status.
type DriverStatusRequest struct {
	Status string `json:"status"`
}

// Register handles POST /v1/admin/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	class, err := domain.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		respondError(c, err)
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), service.RegisterDriverRequest{
		ID:           req.ID,
		Name:         req.Name,
		Contact:      req.Contact,
		VehicleClass: class,
		Vehicle:      req.Vehicle,
		Plate:        req.Plate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetAll handles GET /v1/admin/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponses(drivers))
}

// GetDriver handles GET /v1/admin/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetStatus handles POST /v1/admin/drivers/:id/status
func (h *DriverHandler) SetStatus(c *gin.Context) {
	var req DriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	status := domain.DriverStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	driver, err := h.driverService.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}
