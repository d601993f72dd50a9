package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"instantride/internal/service"
)

// ReportHandler handles admin reporting requests.
type ReportHandler struct {
	queryService *service.QueryService
	loc          *time.Location
	now          func() time.Time
}

// NewReportHandler creates a new ReportHandler. Dates in requests are read
// in loc.
func NewReportHandler(queryService *service.QueryService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{queryService: queryService, loc: loc, now: time.Now}
}

// Daily handles GET /v1/admin/reports/daily?date=YYYY-MM-DD. The date
// defaults to today.
func (h *ReportHandler) Daily(c *gin.Context) {
	day := h.now()
	if v := c.Query("date"); v != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.queryService.Report(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, report)
}
