package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"instantride/internal/service"
)

// ShuttleHandler handles HTTP requests for shuttle runs.
type ShuttleHandler struct {
	shuttleService *service.ShuttleService
}

// NewShuttleHandler creates a new ShuttleHandler.
func NewShuttleHandler(shuttleService *service.ShuttleService) *ShuttleHandler {
	return &ShuttleHandler{shuttleService: shuttleService}
}

// RegisterShuttleRequest is the HTTP request body for starting a shuttle run.
type RegisterShuttleRequest struct {
	ID        string   `json:"id,omitempty"`
	DriverID  string   `json:"driver_id"`
	Capacity  int      `json:"capacity"`
	Junctions []string `json:"junctions"`
}

// Register handles POST /v1/admin/shuttles
func (h *ShuttleHandler) Register(c *gin.Context) {
	var req RegisterShuttleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	shuttle, err := h.shuttleService.Register(c.Request.Context(), service.RegisterShuttleRequest{
		ID:        req.ID,
		DriverID:  req.DriverID,
		Capacity:  req.Capacity,
		Junctions: req.Junctions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toShuttleResponse(shuttle))
}

// GetAll handles GET /v1/admin/shuttles
func (h *ShuttleHandler) GetAll(c *gin.Context) {
	shuttles, err := h.shuttleService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShuttleResponses(shuttles))
}

// GetShuttle handles GET /v1/admin/shuttles/:id
func (h *ShuttleHandler) GetShuttle(c *gin.Context) {
	shuttle, err := h.shuttleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShuttleResponse(shuttle))
}

// AdvanceJunction handles POST /v1/admin/shuttles/:id/advance
func (h *ShuttleHandler) AdvanceJunction(c *gin.Context) {
	shuttle, err := h.shuttleService.AdvanceJunction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShuttleResponse(shuttle))
}
