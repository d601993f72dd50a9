package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"instantride/internal/domain"
	"instantride/internal/logger"
	"instantride/internal/middleware"
	"instantride/internal/service"
)

// PricingHandler handles admin pricing requests.
type PricingHandler struct {
	pricing *service.PricingRegistry
	log     logger.ILogger
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricing *service.PricingRegistry, log logger.ILogger) *PricingHandler {
	return &PricingHandler{pricing: pricing, log: log}
}

// SnapshotResponse is the HTTP representation of a pricing snapshot.
type SnapshotResponse struct {
	ID           string             `json:"id"`
	VehicleClass string             `json:"vehicle_class"`
	Rule         domain.PricingRule `json:"rule"`
	CreatedAt    string             `json:"created_at"`
}

func toSnapshotResponse(s *domain.PricingSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:           s.ID,
		VehicleClass: string(s.VehicleClass),
		Rule:         s.Rule,
		CreatedAt:    formatTime(s.CreatedAt),
	}
}

// GetActive handles GET /v1/admin/pricing
func (h *PricingHandler) GetActive(c *gin.Context) {
	active := h.pricing.Active()
	out := make([]SnapshotResponse, 0, len(active))
	for _, s := range active {
		out = append(out, toSnapshotResponse(s))
	}
	respondJSON(c, http.StatusOK, out)
}

// Update handles PUT /v1/admin/pricing/:class
func (h *PricingHandler) Update(c *gin.Context) {
	class, err := domain.ParseVehicleClass(c.Param("class"))
	if err != nil {
		respondError(c, err)
		return
	}
	var rule domain.PricingRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	id, err := h.pricing.Update(c.Request.Context(), class, rule)
	if err != nil {
		respondError(c, err)
		return
	}
	h.log.Info("pricing changed by admin",
		logger.String("snapshot_id", id),
		logger.String("admin", middleware.AdminSubject(c)),
	)

	snap, err := h.pricing.Snapshot(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSnapshotResponse(snap))
}

// GetSnapshot handles GET /v1/admin/pricing/snapshots/:id
func (h *PricingHandler) GetSnapshot(c *gin.Context) {
	snap, err := h.pricing.Snapshot(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toSnapshotResponse(snap))
}
