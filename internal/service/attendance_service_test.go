package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type mockAttendanceRepo struct {
	latest       *models.AttendanceRecord
	open         *models.AttendanceRecord
	byID         *models.AttendanceRecord
	created      *models.AttendanceRecord
	all          []*models.AttendanceRecord
	records      []models.AttendanceRecord
	closedAll    int64
	checkedOutAt *time.Time
}

func (m *mockAttendanceRepo) Create(ctx context.Context, record *models.AttendanceRecord) error {
	record.ID = fmt.Sprintf("att-%d", len(m.all)+1)
	m.created = record
	m.latest = record
	m.all = append(m.all, record)
	return nil
}

func (m *mockAttendanceRepo) Latest(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	if m.latest == nil {
		return nil, sql.ErrNoRows
	}
	return m.latest, nil
}

func (m *mockAttendanceRepo) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockAttendanceRepo) LatestOpen(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	if m.open == nil {
		return nil, sql.ErrNoRows
	}
	return m.open, nil
}

func (m *mockAttendanceRepo) SetCheckOut(ctx context.Context, id string, checkOut time.Time) error {
	m.checkedOutAt = &checkOut
	return nil
}

func (m *mockAttendanceRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return m.records, len(m.records), nil
}

func (m *mockAttendanceRepo) CloseAllOpen(ctx context.Context, checkOut time.Time) (int64, error) {
	return m.closedAll, nil
}

type mockPortalSettings struct {
	portal models.PortalSettings
	err    error
}

func (m *mockPortalSettings) Portal(ctx context.Context) (models.PortalSettings, error) {
	return m.portal, m.err
}

type mockStatsCache struct {
	deleted  []string
	patterns []string
}

func (m *mockStatsCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockStatsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newTestAttendanceService(repo *mockAttendanceRepo, settings *mockPortalSettings, cache *mockStatsCache) *AttendanceService {
	svc := NewAttendanceService(repo, nil, settings, cache, validator.New(), zap.NewNop(), AttendanceConfig{
		CheckInCooldown: 10 * time.Minute,
	})
	return svc
}

func TestAttendanceCheckInFirstVisit(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, &mockStatsCache{})

	record, err := svc.CheckIn(context.Background(), "u1", models.CheckInRequest{Purpose: "study"})
	require.NoError(t, err)
	assert.Equal(t, "u1", record.UserID)
	assert.True(t, record.Open())
	require.NotNil(t, repo.created.Purpose)
	assert.Equal(t, "study", *repo.created.Purpose)
}

func TestAttendanceCheckInCooldownAdvisoryOnly(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &mockAttendanceRepo{}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, &mockStatsCache{})
	svc.now = func() time.Time { return start }

	first, err := svc.CheckIn(context.Background(), "u1", models.CheckInRequest{})
	require.NoError(t, err)
	assert.True(t, first.Open())

	// Inside the window the repeat is rejected with the remaining minutes.
	svc.now = func() time.Time { return start.Add(5 * time.Minute) }
	_, err = svc.CheckIn(context.Background(), "u1", models.CheckInRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCheckInCooldown.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "5 minute(s)")

	// After the window the check-in succeeds even though the first record is
	// still open: nothing enforces a single open record per student.
	svc.now = func() time.Time { return start.Add(11 * time.Minute) }
	second, err := svc.CheckIn(context.Background(), "u1", models.CheckInRequest{})
	require.NoError(t, err)
	assert.True(t, second.Open())
	require.Len(t, repo.all, 2)
	assert.True(t, repo.all[0].Open())
	assert.NotEqual(t, repo.all[0].ID, second.ID)
}

func TestAttendanceCheckInCooldown(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	lastOut := now.Add(-2 * time.Minute)
	repo := &mockAttendanceRepo{latest: &models.AttendanceRecord{
		ID:       "a1",
		UserID:   "u1",
		CheckIn:  now.Add(-5 * time.Minute),
		CheckOut: &lastOut,
	}}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, &mockStatsCache{})
	svc.now = func() time.Time { return now }

	_, err := svc.CheckIn(context.Background(), "u1", models.CheckInRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCheckInCooldown.Code, appErrors.FromError(err).Code)
	assert.Contains(t, appErrors.FromError(err).Message, "5 minute(s)")

	// Outside the window the same request passes.
	svc.now = func() time.Time { return now.Add(6 * time.Minute) }
	_, err = svc.CheckIn(context.Background(), "u1", models.CheckInRequest{})
	require.NoError(t, err)
}

func TestAttendanceCheckInInvalidatesDashboard(t *testing.T) {
	repo := &mockAttendanceRepo{}
	cache := &mockStatsCache{}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, cache)

	_, err := svc.CheckIn(context.Background(), "u1", models.CheckInRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dashboard:stats:u1"}, cache.deleted)
}

func TestAttendanceScanCheckIn(t *testing.T) {
	repo := &mockAttendanceRepo{}
	settings := &mockPortalSettings{portal: models.PortalSettings{QRAttendance: true}}
	svc := newTestAttendanceService(repo, settings, &mockStatsCache{})

	payload, _ := json.Marshal(models.QRPayload{StudentID: "u1", Timestamp: time.Now().UnixMilli()})
	record, err := svc.ScanCheckIn(context.Background(), "u1", models.ScanCheckInRequest{Payload: string(payload)})
	require.NoError(t, err)
	require.NotNil(t, record.Purpose)
	assert.Equal(t, "qr_scan", *record.Purpose)
}

func TestAttendanceScanCheckInDisabled(t *testing.T) {
	settings := &mockPortalSettings{portal: models.PortalSettings{QRAttendance: false}}
	svc := newTestAttendanceService(&mockAttendanceRepo{}, settings, &mockStatsCache{})

	payload, _ := json.Marshal(models.QRPayload{StudentID: "u1"})
	_, err := svc.ScanCheckIn(context.Background(), "u1", models.ScanCheckInRequest{Payload: string(payload)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceScanCheckInMismatch(t *testing.T) {
	settings := &mockPortalSettings{portal: models.PortalSettings{QRAttendance: true}}
	svc := newTestAttendanceService(&mockAttendanceRepo{}, settings, &mockStatsCache{})

	payload, _ := json.Marshal(models.QRPayload{StudentID: "someone-else"})
	_, err := svc.ScanCheckIn(context.Background(), "u1", models.ScanCheckInRequest{Payload: string(payload)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrQRMismatch.Code, appErrors.FromError(err).Code)
}

func TestAttendanceCheckOut(t *testing.T) {
	repo := &mockAttendanceRepo{open: &models.AttendanceRecord{ID: "a1", UserID: "u1", CheckIn: time.Now().Add(-time.Hour)}}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, &mockStatsCache{})

	record, err := svc.CheckOut(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, record.CheckOut)
	assert.NotNil(t, repo.checkedOutAt)
}

func TestAttendanceCheckOutNotCheckedIn(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockPortalSettings{}, &mockStatsCache{})

	_, err := svc.CheckOut(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotCheckedIn.Code, appErrors.FromError(err).Code)
}

func TestAttendanceForceCheckOut(t *testing.T) {
	repo := &mockAttendanceRepo{byID: &models.AttendanceRecord{ID: "a1", UserID: "u1", CheckIn: time.Now().Add(-3 * time.Hour)}}
	cache := &mockStatsCache{}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, cache)

	record, err := svc.ForceCheckOut(context.Background(), "a1")
	require.NoError(t, err)
	assert.NotNil(t, record.CheckOut)
	assert.Equal(t, []string{"dashboard:stats:u1"}, cache.deleted)
}

func TestAttendanceForceCheckOutClosed(t *testing.T) {
	out := time.Now().Add(-time.Hour)
	repo := &mockAttendanceRepo{byID: &models.AttendanceRecord{ID: "a1", UserID: "u1", CheckIn: out.Add(-time.Hour), CheckOut: &out}}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, &mockStatsCache{})

	_, err := svc.ForceCheckOut(context.Background(), "a1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAttendanceForceCheckOutNotFound(t *testing.T) {
	svc := newTestAttendanceService(&mockAttendanceRepo{}, &mockPortalSettings{}, &mockStatsCache{})

	_, err := svc.ForceCheckOut(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceStatus(t *testing.T) {
	since := time.Now().Add(-30 * time.Minute)
	repo := &mockAttendanceRepo{open: &models.AttendanceRecord{ID: "a1", UserID: "u1", CheckIn: since}}
	svc := newTestAttendanceService(repo, &mockPortalSettings{}, &mockStatsCache{})

	status, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, status.CheckedIn)
	require.NotNil(t, status.Since)
	assert.Equal(t, since, *status.Since)

	empty := newTestAttendanceService(&mockAttendanceRepo{}, &mockPortalSettings{}, &mockStatsCache{})
	status, err = empty.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, status.CheckedIn)
	assert.Nil(t, status.Since)
}

func TestAttendanceAutoCheckoutTick(t *testing.T) {
	now := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	repo := &mockAttendanceRepo{closedAll: 3}
	settings := &mockPortalSettings{portal: models.PortalSettings{AutoCheckout: true, ClosingTime: "20:00"}}
	cache := &mockStatsCache{}
	svc := newTestAttendanceService(repo, settings, cache)
	svc.now = func() time.Time { return now }

	svc.autoCheckoutTick(context.Background())
	assert.Equal(t, []string{"dashboard:stats:*"}, cache.patterns)
}

func TestAttendanceAutoCheckoutBeforeClosing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &mockAttendanceRepo{closedAll: 3}
	settings := &mockPortalSettings{portal: models.PortalSettings{AutoCheckout: true, ClosingTime: "20:00"}}
	cache := &mockStatsCache{}
	svc := newTestAttendanceService(repo, settings, cache)
	svc.now = func() time.Time { return now }

	svc.autoCheckoutTick(context.Background())
	assert.Empty(t, cache.patterns)
}
