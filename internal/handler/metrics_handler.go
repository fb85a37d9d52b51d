package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/service"
)

// MetricsHandler exposes Prometheus metrics.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler creates a new handler.
func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: svc}
}

// Metrics godoc
// @Summary Prometheus metrics
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "metrics"
// @Router /metrics [get]
func (h *MetricsHandler) Metrics(c *gin.Context) {
	h.service.Handler().ServeHTTP(c.Writer, c.Request)
}
