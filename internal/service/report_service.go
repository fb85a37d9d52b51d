package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/stats"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/export"
	"github.com/openshelf/library-portal-api/pkg/jobs"
	"github.com/openshelf/library-portal-api/pkg/storage"
)

// StillIn marks the check-out column of an open record in exports.
const StillIn = "Still In"

var reportHeaders = []string{"Student ID", "Name", "Check In", "Check Out", "Duration", "Date"}

type reportAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type reportProfileRepository interface {
	IdentityMap(ctx context.Context, userIDs []string) (map[string]models.ProfileIdentity, error)
}

type reportMetrics interface {
	RecordReportJob(status string)
}

// ReportConfig tunes export generation.
type ReportConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	CleanupInterval   time.Duration
	SignedURLTTL      time.Duration
}

// ReportService builds attendance exports, synchronously for small ranges and
// through a background queue with signed download links for larger ones. Job
// state lives in memory; a restart forgets unfinished jobs, the files on disk
// are reaped by the cleanup loop.
type ReportService struct {
	attendance reportAttendanceRepository
	profiles   reportProfileRepository
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	metrics    reportMetrics
	logger     *zap.Logger
	config     ReportConfig

	csv   *export.CSVExporter
	pdf   *export.PDFExporter
	excel *export.ExcelExporter
	cert  *export.CertificateExporter

	queue *jobs.Queue

	mu   sync.RWMutex
	jobs map[string]*models.ReportJob

	now func() time.Time
}

// NewReportService constructs a ReportService instance.
func NewReportService(attendance reportAttendanceRepository, profiles reportProfileRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics reportMetrics, logger *zap.Logger, config ReportConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		attendance: attendance,
		profiles:   profiles,
		store:      store,
		signer:     signer,
		metrics:    metrics,
		logger:     logger,
		config:     config,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		excel:      export.NewExcelExporter("Attendance"),
		cert:       export.NewCertificateExporter(),
		jobs:       make(map[string]*models.ReportJob),
		now:        func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("reports", s.processJob, jobs.QueueConfig{
		Workers:    config.WorkerConcurrency,
		MaxRetries: config.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers and the file cleanup loop.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.runCleanup(ctx)
}

// Stop drains the queue workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// BuildRows flattens the records in [from, to] into export rows joined with
// each owner's display identity.
func (s *ReportService) BuildRows(ctx context.Context, from, to time.Time) ([]models.ReportRow, error) {
	return s.buildRows(ctx, "", from, to)
}

// BuildRowsForUser is the self-scoped variant covering one student only.
func (s *ReportService) BuildRowsForUser(ctx context.Context, userID string, from, to time.Time) ([]models.ReportRow, error) {
	return s.buildRows(ctx, userID, from, to)
}

func (s *ReportService) buildRows(ctx context.Context, userID string, from, to time.Time) ([]models.ReportRow, error) {
	toExclusive := to.AddDate(0, 0, 1)
	records, _, err := s.attendance.List(ctx, models.AttendanceFilter{
		UserID:   userID,
		From:     &from,
		To:       &toExclusive,
		PageSize: 500,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance for report")
	}

	userIDs := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		userIDs = append(userIDs, r.UserID)
	}

	identities, err := s.profiles.IdentityMap(ctx, userIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student identities")
	}

	rows := make([]models.ReportRow, 0, len(records))
	for _, r := range records {
		identity := identities[r.UserID]
		name := identity.FullName
		if name == "" {
			name = "Unknown"
		}
		checkOut := StillIn
		if r.CheckOut != nil {
			checkOut = r.CheckOut.Format("3:04 PM")
		}
		rows = append(rows, models.ReportRow{
			StudentID:   identity.StudentID,
			StudentName: name,
			CheckIn:     r.CheckIn.Format("3:04 PM"),
			CheckOut:    checkOut,
			Duration:    stats.FormatDuration(r.CheckIn, r.CheckOut),
			Date:        r.CheckIn.Format("2006-01-02"),
		})
	}
	return rows, nil
}

// Export renders the report synchronously and returns the bytes, filename and
// content type.
func (s *ReportService) Export(ctx context.Context, req models.ReportRequest) ([]byte, string, string, error) {
	if err := validateReportRequest(req); err != nil {
		return nil, "", "", err
	}

	rows, err := s.BuildRows(ctx, req.From, req.To)
	if err != nil {
		return nil, "", "", err
	}

	raw, contentType, err := s.render(rows, req, "")
	if err != nil {
		return nil, "", "", err
	}
	return raw, reportFilename(req), contentType, nil
}

// ExportForUser renders a student's own report for the range.
func (s *ReportService) ExportForUser(ctx context.Context, userID string, req models.ReportRequest) ([]byte, string, string, error) {
	if err := validateReportRequest(req); err != nil {
		return nil, "", "", err
	}

	rows, err := s.BuildRowsForUser(ctx, userID, req.From, req.To)
	if err != nil {
		return nil, "", "", err
	}

	title := fmt.Sprintf("Personal Attendance Report (%s to %s)", req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	raw, contentType, err := s.render(rows, req, title)
	if err != nil {
		return nil, "", "", err
	}
	return raw, personalReportFilename(req), contentType, nil
}

// Certificate renders an attendance certificate for the student. A student
// with no recorded visits has nothing to certify.
func (s *ReportService) Certificate(ctx context.Context, userID string) ([]byte, string, error) {
	_, total, err := s.attendance.List(ctx, models.AttendanceFilter{UserID: userID, PageSize: 1})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance for certificate")
	}
	if total == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "no attendance records to certify")
	}

	identities, err := s.profiles.IdentityMap(ctx, []string{userID})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student identity")
	}

	issued := s.now()
	raw, err := s.cert.Render(export.CertificateData{
		StudentName: identities[userID].FullName,
		StudentID:   identities[userID].StudentID,
		Sessions:    total,
		IssueDate:   issued,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return raw, fmt.Sprintf("attendance_certificate_%s.pdf", issued.Format("2006-01-02")), nil
}

// Enqueue registers an asynchronous export job.
func (s *ReportService) Enqueue(ctx context.Context, requestedBy string, req models.ReportRequest) (*models.ReportJob, error) {
	if err := validateReportRequest(req); err != nil {
		return nil, err
	}

	job := &models.ReportJob{
		ID:          uuid.NewString(),
		Format:      req.Format,
		From:        req.From,
		To:          req.To,
		Status:      models.ReportJobQueued,
		RequestedBy: requestedBy,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report_export", Payload: req}); err != nil {
		s.setJobFailed(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report job")
	}
	return s.Job(job.ID)
}

// Job returns a copy of the job state.
func (s *ReportService) Job(id string) (*models.ReportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	copied := *job
	return &copied, nil
}

// OpenDownload validates a signed token and returns the stored file.
func (s *ReportService) OpenDownload(token string) (string, []byte, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	job, err := s.Job(jobID)
	if err != nil {
		return "", nil, err
	}
	if job.Status != models.ReportJobCompleted {
		return "", nil, appErrors.Clone(appErrors.ErrConflict, "report is not ready")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report file no longer available")
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report file")
	}
	raw := make([]byte, info.Size())
	if _, err := io.ReadFull(file, raw); err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report file")
	}
	return reportFilename(models.ReportRequest{From: job.From, To: job.To, Format: job.Format}), raw, nil
}

func (s *ReportService) processJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(models.ReportRequest)
	if !ok {
		s.setJobFailed(job.ID, fmt.Errorf("unexpected payload type %T", job.Payload))
		return nil
	}

	s.setJobStatus(job.ID, models.ReportJobRunning)

	rows, err := s.BuildRows(ctx, req.From, req.To)
	if err != nil {
		s.setJobFailed(job.ID, err)
		return err
	}

	raw, _, err := s.render(rows, req, "")
	if err != nil {
		s.setJobFailed(job.ID, err)
		return err
	}

	relPath := fmt.Sprintf("%s/%s", job.ID, reportFilename(req))
	if _, err := s.store.Save(relPath, raw); err != nil {
		s.setJobFailed(job.ID, err)
		return err
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.setJobFailed(job.ID, err)
		return err
	}

	now := s.now()
	s.mu.Lock()
	if stored, ok := s.jobs[job.ID]; ok {
		stored.Status = models.ReportJobCompleted
		stored.FilePath = relPath
		stored.DownloadURL = "/api/v1/admin/reports/download/" + token
		stored.CompletedAt = &now
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordReportJob(string(models.ReportJobCompleted))
	}
	return nil
}

func (s *ReportService) render(rows []models.ReportRow, req models.ReportRequest, title string) ([]byte, string, error) {
	data := export.Dataset{Headers: reportHeaders}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Student ID": row.StudentID,
			"Name":       row.StudentName,
			"Check In":   row.CheckIn,
			"Check Out":  row.CheckOut,
			"Duration":   row.Duration,
			"Date":       row.Date,
		})
	}

	switch req.Format {
	case models.FormatCSV:
		raw, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return raw, "text/csv", nil
	case models.FormatPDF:
		if title == "" {
			title = fmt.Sprintf("Attendance Report %s to %s", req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
		}
		raw, err := s.pdf.Render(data, title, s.now())
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return raw, "application/pdf", nil
	case models.FormatXLSX:
		raw, err := s.excel.Render(data, columnWidths(data))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render xlsx")
		}
		return raw, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}

func (s *ReportService) setJobStatus(id string, status models.ReportJobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
}

func (s *ReportService) setJobFailed(id string, err error) {
	now := s.now()
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = models.ReportJobFailed
		job.Error = err.Error()
		job.CompletedAt = &now
	}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordReportJob(string(models.ReportJobFailed))
	}
}

func (s *ReportService) runCleanup(ctx context.Context) {
	interval := s.config.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ttl := s.config.SignedURLTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			deleted, err := s.store.CleanupOlderThan(ttl)
			if err != nil {
				s.logger.Warn("report cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("report cleanup removed expired files", zap.Int("count", len(deleted)))
			}
		}
	}
}

func validateReportRequest(req models.ReportRequest) error {
	if req.From.IsZero() || req.To.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "report range is required")
	}
	if req.To.Before(req.From) {
		return appErrors.Clone(appErrors.ErrValidation, "report range end precedes start")
	}
	switch req.Format {
	case models.FormatCSV, models.FormatPDF, models.FormatXLSX:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}

// columnWidths sizes xlsx columns to roughly fit the widest cell.
func columnWidths(data export.Dataset) map[string]float64 {
	widths := make(map[string]float64, len(data.Headers))
	for _, header := range data.Headers {
		max := len(header)
		for _, row := range data.Rows {
			if l := len(row[header]); l > max {
				max = l
			}
		}
		width := float64(max) + 2
		if width > 40 {
			width = 40
		}
		widths[header] = width
	}
	return widths
}

func reportFilename(req models.ReportRequest) string {
	return fmt.Sprintf("attendance-report-%s-to-%s.%s", req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), req.Format)
}

func personalReportFilename(req models.ReportRequest) string {
	return fmt.Sprintf("my_attendance_%s_to_%s.%s", req.From.Format("2006-01-02"), req.To.Format("2006-01-02"), req.Format)
}
