package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	Latest(ctx context.Context, userID string) (*models.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	LatestOpen(ctx context.Context, userID string) (*models.AttendanceRecord, error)
	SetCheckOut(ctx context.Context, id string, checkOut time.Time) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	CloseAllOpen(ctx context.Context, checkOut time.Time) (int64, error)
}

type attendancePublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type attendanceSettings interface {
	Portal(ctx context.Context) (models.PortalSettings, error)
}

type attendanceCache interface {
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ChangeEvent is broadcast on the attendance change feed whenever presence
// changes, so occupancy listeners can refresh without polling.
type ChangeEvent struct {
	UserID string    `json:"user_id"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// AttendanceConfig tunes the check-in flow.
type AttendanceConfig struct {
	CheckInCooldown   time.Duration
	AutoCheckoutEvery time.Duration
	ChangeFeedChannel string
}

// AttendanceService implements the check-in and check-out flows.
type AttendanceService struct {
	repo      attendanceRepository
	publisher attendancePublisher
	settings  attendanceSettings
	cache     attendanceCache
	validator *validator.Validate
	logger    *zap.Logger
	config    AttendanceConfig
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo attendanceRepository, publisher attendancePublisher, settings attendanceSettings, cache attendanceCache, validate *validator.Validate, logger *zap.Logger, config AttendanceConfig) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ChangeFeedChannel == "" {
		config.ChangeFeedChannel = "library.attendance.changed"
	}
	return &AttendanceService{
		repo:      repo,
		publisher: publisher,
		settings:  settings,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckIn opens a new attendance record for the caller. The only guard is the
// cooldown against the latest check-in timestamp, and it is read-then-insert:
// a single open record per student is a convention, never enforced, so a
// check-in after the window succeeds even while an earlier record is open.
func (s *AttendanceService) CheckIn(ctx context.Context, userID string, req models.CheckInRequest) (*models.AttendanceRecord, error) {
	now := s.now()

	latest, err := s.repo.Latest(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest attendance")
	}
	if latest != nil && s.config.CheckInCooldown > 0 {
		if elapsed := now.Sub(latest.CheckIn); elapsed < s.config.CheckInCooldown {
			remaining := s.config.CheckInCooldown - elapsed
			minutes := int((remaining + time.Minute - 1) / time.Minute)
			return nil, appErrors.Clone(appErrors.ErrCheckInCooldown, fmt.Sprintf("you can check in again in %d minute(s)", minutes))
		}
	}

	record := &models.AttendanceRecord{
		UserID:  userID,
		CheckIn: now,
	}
	if req.Purpose != "" {
		record.Purpose = &req.Purpose
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}

	s.publishChange(ctx, ChangeEvent{UserID: userID, Action: "check_in", At: now})
	s.invalidateStats(ctx, userID)
	return record, nil
}

// ScanCheckIn decodes a scanned QR token and checks the caller in. The token
// must belong to the authenticated student.
func (s *AttendanceService) ScanCheckIn(ctx context.Context, userID string, req models.ScanCheckInRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}

	settings, err := s.settings.Portal(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load portal settings")
	}
	if !settings.QRAttendance {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "QR attendance is disabled")
	}

	var payload models.QRPayload
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed QR payload")
	}
	if payload.StudentID != userID {
		return nil, appErrors.Clone(appErrors.ErrQRMismatch, "")
	}

	return s.CheckIn(ctx, userID, models.CheckInRequest{Purpose: "qr_scan"})
}

// CheckOut closes the caller's open record.
func (s *AttendanceService) CheckOut(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	open, err := s.repo.LatestOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotCheckedIn, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load open attendance")
	}

	now := s.now()
	if err := s.repo.SetCheckOut(ctx, open.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close attendance record")
	}
	open.CheckOut = &now

	s.publishChange(ctx, ChangeEvent{UserID: userID, Action: "check_out", At: now})
	s.invalidateStats(ctx, userID)
	return open, nil
}

// ForceCheckOut closes a specific record on behalf of an admin.
func (s *AttendanceService) ForceCheckOut(ctx context.Context, recordID string) (*models.AttendanceRecord, error) {
	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if !record.Open() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "record is already checked out")
	}

	now := s.now()
	if err := s.repo.SetCheckOut(ctx, record.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close attendance record")
	}
	record.CheckOut = &now

	s.publishChange(ctx, ChangeEvent{UserID: record.UserID, Action: "check_out", At: now})
	s.invalidateStats(ctx, record.UserID)
	return record, nil
}

// Status summarises the caller's current presence.
func (s *AttendanceService) Status(ctx context.Context, userID string) (*models.AttendanceStatus, error) {
	open, err := s.repo.LatestOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AttendanceStatus{CheckedIn: false}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance status")
	}
	return &models.AttendanceStatus{CheckedIn: true, Since: &open.CheckIn}, nil
}

// History returns the caller's recent records.
func (s *AttendanceService) History(ctx context.Context, userID string, limit int) ([]models.AttendanceRecord, error) {
	records, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// List returns records for the admin view.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, total, nil
}

// RunAutoCheckout closes all open records whenever the configured closing time
// has passed. It blocks until the context is cancelled.
func (s *AttendanceService) RunAutoCheckout(ctx context.Context) {
	interval := s.config.AutoCheckoutEvery
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.autoCheckoutTick(ctx)
		}
	}
}

func (s *AttendanceService) autoCheckoutTick(ctx context.Context) {
	settings, err := s.settings.Portal(ctx)
	if err != nil {
		s.logger.Warn("auto checkout: failed to load portal settings", zap.Error(err))
		return
	}
	if !settings.AutoCheckout {
		return
	}

	now := s.now()
	closing, err := time.Parse("15:04", settings.ClosingTime)
	if err != nil {
		s.logger.Warn("auto checkout: invalid closing time", zap.String("closing_time", settings.ClosingTime))
		return
	}
	closingToday := time.Date(now.Year(), now.Month(), now.Day(), closing.Hour(), closing.Minute(), 0, 0, now.Location())
	if now.Before(closingToday) {
		return
	}

	closed, err := s.repo.CloseAllOpen(ctx, now)
	if err != nil {
		s.logger.Error("auto checkout failed", zap.Error(err))
		return
	}
	if closed > 0 {
		s.logger.Info("auto checkout closed open records", zap.Int64("count", closed))
		s.publishChange(ctx, ChangeEvent{Action: "auto_checkout", At: now})
		if s.cache != nil {
			if err := s.cache.DeleteByPattern(ctx, dashboardStatsKeyPrefix+"*"); err != nil {
				s.logger.Warn("failed to invalidate dashboard caches", zap.Error(err))
			}
		}
	}
}

func (s *AttendanceService) invalidateStats(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardStatsKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AttendanceService) publishChange(ctx context.Context, event ChangeEvent) {
	if s.publisher == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to encode change event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.config.ChangeFeedChannel, raw).Err(); err != nil {
		s.logger.Warn("failed to publish change event", zap.Error(err))
	}
}
