package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
	"github.com/openshelf/library-portal-api/pkg/export"
	"github.com/openshelf/library-portal-api/pkg/storage"
)

type mockReportAttendance struct {
	records []models.AttendanceRecord
	filter  models.AttendanceFilter
}

func (m *mockReportAttendance) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	m.filter = filter
	return m.records, len(m.records), nil
}

type mockReportProfiles struct {
	identities map[string]models.ProfileIdentity
}

func (m *mockReportProfiles) IdentityMap(ctx context.Context, userIDs []string) (map[string]models.ProfileIdentity, error) {
	return m.identities, nil
}

func newTestReportService(t *testing.T, attendance *mockReportAttendance, profiles *mockReportProfiles) *ReportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewReportService(attendance, profiles, store, signer, nil, zap.NewNop(), ReportConfig{})
}

func TestReportBuildRows(t *testing.T) {
	checkIn := time.Date(2026, 2, 3, 9, 15, 0, 0, time.UTC)
	checkOut := checkIn.Add(2*time.Hour + 40*time.Minute)
	attendance := &mockReportAttendance{records: []models.AttendanceRecord{
		{UserID: "u1", CheckIn: checkIn, CheckOut: &checkOut},
		{UserID: "u2", CheckIn: checkIn.Add(time.Hour)},
	}}
	profiles := &mockReportProfiles{identities: map[string]models.ProfileIdentity{
		"u1": {FullName: "Ada Lovelace", StudentID: "S-100"},
	}}
	svc := newTestReportService(t, attendance, profiles)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	rows, err := svc.BuildRows(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Ada Lovelace", rows[0].StudentName)
	assert.Equal(t, "S-100", rows[0].StudentID)
	assert.Equal(t, "9:15 AM", rows[0].CheckIn)
	assert.Equal(t, "11:55 AM", rows[0].CheckOut)
	assert.Equal(t, "2h 40m", rows[0].Duration)
	assert.Equal(t, "2026-02-03", rows[0].Date)

	// Records without a profile fall back, open ones stay marked.
	assert.Equal(t, "Unknown", rows[1].StudentName)
	assert.Equal(t, StillIn, rows[1].CheckOut)
	assert.Equal(t, "In Progress", rows[1].Duration)

	// The range end is inclusive: the repository filter goes one day past it.
	require.NotNil(t, attendance.filter.To)
	assert.Equal(t, to.AddDate(0, 0, 1), *attendance.filter.To)
}

func TestReportExportXLSXRoundTrip(t *testing.T) {
	checkIn := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(time.Hour)
	attendance := &mockReportAttendance{records: []models.AttendanceRecord{
		{UserID: "u1", CheckIn: checkIn, CheckOut: &checkOut},
	}}
	profiles := &mockReportProfiles{identities: map[string]models.ProfileIdentity{
		"u1": {FullName: "Ada Lovelace", StudentID: "S-100"},
	}}
	svc := newTestReportService(t, attendance, profiles)

	req := models.ReportRequest{
		From:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Format: models.FormatXLSX,
	}
	raw, filename, contentType, err := svc.Export(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "attendance-report-2026-02-01-to-2026-02-28.xlsx", filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType)

	parsed, err := export.NewExcelExporter("Attendance").ReadSheet(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Student ID", "Name", "Check In", "Check Out", "Duration", "Date"}, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "Ada Lovelace", parsed.Rows[0]["Name"])
	assert.Equal(t, "1h 0m", parsed.Rows[0]["Duration"])
}

func TestReportExportCSV(t *testing.T) {
	attendance := &mockReportAttendance{}
	svc := newTestReportService(t, attendance, &mockReportProfiles{})

	req := models.ReportRequest{
		From:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Format: models.FormatCSV,
	}
	raw, _, contentType, err := svc.Export(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(raw), "Student ID,Name,Check In,Check Out,Duration,Date")
}

func TestReportExportForUser(t *testing.T) {
	checkIn := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(time.Hour)
	attendance := &mockReportAttendance{records: []models.AttendanceRecord{
		{UserID: "u1", CheckIn: checkIn, CheckOut: &checkOut},
	}}
	svc := newTestReportService(t, attendance, &mockReportProfiles{identities: map[string]models.ProfileIdentity{
		"u1": {FullName: "Ada Lovelace", StudentID: "S-100"},
	}})

	req := models.ReportRequest{
		From:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Format: models.FormatCSV,
	}
	raw, filename, _, err := svc.ExportForUser(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "my_attendance_2026-02-01_to_2026-02-28.csv", filename)
	assert.Contains(t, string(raw), "Ada Lovelace")

	// The repository query is scoped to the caller.
	assert.Equal(t, "u1", attendance.filter.UserID)
}

func TestReportCertificate(t *testing.T) {
	attendance := &mockReportAttendance{records: []models.AttendanceRecord{
		{UserID: "u1", CheckIn: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)},
	}}
	svc := newTestReportService(t, attendance, &mockReportProfiles{identities: map[string]models.ProfileIdentity{
		"u1": {FullName: "Ada Lovelace", StudentID: "S-100"},
	}})
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	raw, filename, err := svc.Certificate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "attendance_certificate_2026-03-01.pdf", filename)
	assert.True(t, len(raw) > 0 && string(raw[:4]) == "%PDF")
}

func TestReportCertificateNoRecords(t *testing.T) {
	svc := newTestReportService(t, &mockReportAttendance{}, &mockReportProfiles{})

	_, _, err := svc.Certificate(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReportValidateRequest(t *testing.T) {
	from := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	_, _, _, err := newTestReportService(t, &mockReportAttendance{}, &mockReportProfiles{}).
		Export(context.Background(), models.ReportRequest{From: from, To: from.AddDate(0, 0, -1), Format: models.FormatCSV})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, _, err = newTestReportService(t, &mockReportAttendance{}, &mockReportProfiles{}).
		Export(context.Background(), models.ReportRequest{From: from, To: from, Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportEnqueueAndJobStatus(t *testing.T) {
	svc := newTestReportService(t, &mockReportAttendance{}, &mockReportProfiles{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	req := models.ReportRequest{
		From:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Format: models.FormatCSV,
	}
	job, err := svc.Enqueue(ctx, "admin-1", req)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", job.RequestedBy)

	require.Eventually(t, func() bool {
		current, err := svc.Job(job.ID)
		return err == nil && current.Status == models.ReportJobCompleted
	}, 5*time.Second, 20*time.Millisecond)

	done, err := svc.Job(job.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, done.DownloadURL)
	assert.Contains(t, done.DownloadURL, "/api/v1/admin/reports/download/")
}

func TestReportJobNotFound(t *testing.T) {
	svc := newTestReportService(t, &mockReportAttendance{}, &mockReportProfiles{})
	_, err := svc.Job("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestColumnWidths(t *testing.T) {
	data := export.Dataset{
		Headers: []string{"A", "Long Header"},
		Rows: []map[string]string{
			{"A": "a cell wider than its header", "Long Header": "x"},
		},
	}
	widths := columnWidths(data)
	assert.Equal(t, float64(len("a cell wider than its header"))+2, widths["A"])
	assert.Equal(t, float64(len("Long Header"))+2, widths["Long Header"])

	// Very wide cells cap out at 40.
	data.Rows = append(data.Rows, map[string]string{"A": string(make([]byte, 80))})
	assert.Equal(t, 40.0, columnWidths(data)["A"])
}
