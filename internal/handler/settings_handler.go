package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/service"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/response"
)

// SettingsHandler wires the capacity and portal settings endpoints.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler creates a new handler.
func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// GetPortal godoc
// @Summary Portal settings
// @Description Presentation settings visible to all authenticated users
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) GetPortal(c *gin.Context) {
	settings, err := h.service.Portal(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// SavePortal godoc
// @Summary Save portal settings
// @Description Replace the presentation settings wholesale
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.PortalSettings true "Settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings [put]
func (h *SettingsHandler) SavePortal(c *gin.Context) {
	var settings models.PortalSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	if err := h.service.SavePortal(c.Request.Context(), settings); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// GetCapacity godoc
// @Summary Library capacity
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/settings/capacity [get]
func (h *SettingsHandler) GetCapacity(c *gin.Context) {
	capacity, err := h.service.Capacity(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, capacity, nil)
}

// UpdateCapacity godoc
// @Summary Update library capacity
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.UpdateCapacityRequest true "Capacity"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings/capacity [put]
func (h *SettingsHandler) UpdateCapacity(c *gin.Context) {
	var req models.UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid capacity payload"))
		return
	}

	if err := h.service.UpdateCapacity(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
