package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/service"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/response"
)

// DashboardHandler serves the student dashboard aggregate.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Monthly goal progress, streak and weekly activity for the current student
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}
