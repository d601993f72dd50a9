package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"instantride/internal/domain"
	"instantride/internal/service"
)

// PaymentHandler handles HTTP requests for gateway payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CallbackRequest is the gateway webhook body.
type CallbackRequest struct {
	TxRef  string `json:"tx_ref"`
	Status string `json:"status"` // success or failed
}

// PaymentRecordResponse is the HTTP representation of a payment record.
type PaymentRecordResponse struct {
	RideID     string `json:"ride_id"`
	PublicCode string `json:"public_code"`
	Amount     int64  `json:"amount"`
	TxRef      string `json:"tx_ref,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// Callback handles POST /v1/payments/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	var succeeded bool
	switch domain.PaymentStatus(strings.ToLower(strings.TrimSpace(req.Status))) {
	case domain.PaymentStatusSuccess:
		succeeded = true
	case domain.PaymentStatusFailed:
	default:
		badRequest(c, "status must be success or failed")
		return
	}

	ride, err := h.paymentService.HandleCallback(c.Request.Context(), req.TxRef, succeeded)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// Records handles GET /v1/admin/payments
func (h *PaymentHandler) Records(c *gin.Context) {
	records, err := h.paymentService.Records(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PaymentRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, PaymentRecordResponse{
			RideID:     r.RideID,
			PublicCode: r.PublicCode,
			Amount:     r.Amount,
			TxRef:      r.TxRef,
			Status:     string(r.Status),
			CreatedAt:  formatTime(r.CreatedAt),
		})
	}
	respondJSON(c, http.StatusOK, out)
}

// Verify handles POST /v1/admin/payments/:txref/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	ride, err := h.paymentService.Verify(c.Request.Context(), c.Param("txref"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
