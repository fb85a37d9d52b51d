package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/service"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/response"
)

// QRHandler serves per-student attendance codes.
type QRHandler struct {
	service *service.QRService
}

// NewQRHandler creates a new handler.
func NewQRHandler(svc *service.QRService) *QRHandler {
	return &QRHandler{service: svc}
}

// Image godoc
// @Summary My attendance QR code
// @Description Render the current student's attendance code as PNG
// @Tags QR
// @Produce png
// @Param size query int false "Edge length in pixels" default(256)
// @Success 200 {file} binary
// @Router /qr [get]
func (h *QRHandler) Image(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := h.service.Image(claims.UserID, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// StudentImage godoc
// @Summary Student attendance QR code
// @Description Render any student's attendance code as PNG (admin)
// @Tags QR
// @Produce png
// @Param id path string true "Student ID"
// @Param size query int false "Edge length in pixels" default(256)
// @Success 200 {file} binary
// @Router /admin/students/{id}/qr [get]
func (h *QRHandler) StudentImage(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := h.service.Image(c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// Payload godoc
// @Summary My attendance QR payload
// @Description Returns the JSON token embedded in the student's code
// @Tags QR
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /qr/payload [get]
func (h *QRHandler) Payload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := h.service.Payload(claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"payload": payload}, nil)
}
