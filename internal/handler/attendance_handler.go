package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/service"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/response"
)

// AttendanceHandler wires the check-in and check-out endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
	metrics *service.MetricsService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, metrics: metrics}
}

// CheckIn godoc
// @Summary Check in
// @Description Open an attendance record for the current student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.CheckInRequest false "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CheckInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
			return
		}
	}

	record, err := h.service.CheckIn(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordCheckIn("manual")
	response.Created(c, record)
}

// ScanCheckIn godoc
// @Summary Check in via QR scan
// @Description Decode a scanned attendance code and check the student in
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.ScanCheckInRequest true "Scanned payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/check-in/scan [post]
func (h *AttendanceHandler) ScanCheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ScanCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}

	record, err := h.service.ScanCheckIn(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordCheckIn("qr")
	response.Created(c, record)
}

// CheckOut godoc
// @Summary Check out
// @Description Close the current student's open attendance record
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-out [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.CheckOut(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Status godoc
// @Summary Attendance status
// @Description Whether the current student is checked in, and since when
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/status [get]
func (h *AttendanceHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// History godoc
// @Summary Attendance history
// @Description Recent attendance records for the current student
// @Tags Attendance
// @Produce json
// @Param limit query int false "Max records" default(10)
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	records, err := h.service.History(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, nil)
}

// AdminForceCheckOut godoc
// @Summary Force check-out
// @Description Close a specific attendance record on behalf of an admin
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/attendance/{id}/check-out [post]
func (h *AttendanceHandler) AdminForceCheckOut(c *gin.Context) {
	record, err := h.service.ForceCheckOut(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// AdminList godoc
// @Summary List attendance records
// @Description Admin listing with date range and student filters
// @Tags Attendance
// @Produce json
// @Param user_id query string false "Filter by student"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD), inclusive"
// @Param open query bool false "Only open records"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} response.Envelope
// @Router /admin/attendance [get]
func (h *AttendanceHandler) AdminList(c *gin.Context) {
	filter := models.AttendanceFilter{
		UserID:   c.Query("user_id"),
		OpenOnly: c.Query("open") == "true",
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return
		}
		toExclusive := to.AddDate(0, 0, 1)
		filter.To = &toExclusive
	}

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
