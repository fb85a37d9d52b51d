package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/service"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/response"
)

// ReportHandler wires the attendance export endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

func reportRequestFromQuery(c *gin.Context) (models.ReportRequest, error) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return models.ReportRequest{}, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return models.ReportRequest{}, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
	}
	return models.ReportRequest{
		From:   from,
		To:     to,
		Format: models.ReportFormat(c.DefaultQuery("format", "xlsx")),
	}, nil
}

// Export godoc
// @Summary Export attendance report
// @Description Synchronously render the report and stream it back
// @Tags Reports
// @Produce octet-stream
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Param format query string false "xlsx, pdf or csv" default(xlsx)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	req, err := reportRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	raw, filename, contentType, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, raw)
}

// ExportMine godoc
// @Summary Export my attendance report
// @Description Render the current student's own attendance for a date range
// @Tags Reports
// @Produce octet-stream
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Param format query string false "xlsx, pdf or csv" default(xlsx)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) ExportMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req, err := reportRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	raw, filename, contentType, err := h.service.ExportForUser(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, raw)
}

// Certificate godoc
// @Summary Attendance certificate
// @Description PDF certificate of the current student's recorded visits
// @Tags Reports
// @Produce octet-stream
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /reports/certificate [get]
func (h *ReportHandler) Certificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	raw, filename, err := h.service.Certificate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", raw)
}

// Enqueue godoc
// @Summary Queue attendance report
// @Description Start an asynchronous export; poll the job for a download link
// @Tags Reports
// @Produce json
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Param format query string false "xlsx, pdf or csv" default(xlsx)
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/reports/jobs [post]
func (h *ReportHandler) Enqueue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req, err := reportRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	job, err := h.service.Enqueue(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/reports/jobs/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	job, err := h.service.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download generated report
// @Description Stream a completed report using its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /admin/reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	filename, raw, err := h.service.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", raw)
}
