package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/service"
	"github.com/openshelf/library-portal-api/pkg/response"
)

// OccupancyHandler serves the live library status.
type OccupancyHandler struct {
	service *service.OccupancyService
	metrics *service.MetricsService
}

// NewOccupancyHandler creates a new handler.
func NewOccupancyHandler(svc *service.OccupancyService, metrics *service.MetricsService) *OccupancyHandler {
	return &OccupancyHandler{service: svc, metrics: metrics}
}

// Status godoc
// @Summary Library status
// @Description Current occupancy, capacity and availability
// @Tags Library
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /library/status [get]
func (h *OccupancyHandler) Status(c *gin.Context) {
	view, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.SetOccupiedSeats(view.Occupied)
	response.JSON(c, http.StatusOK, view, nil)
}
