package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	"github.com/openshelf/library-portal-api/internal/stats"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type dashboardAttendanceRepository interface {
	CountInRange(ctx context.Context, userID string, from, to time.Time) (int, error)
	CheckInsSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type dashboardProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const dashboardStatsKeyPrefix = "dashboard:stats:"

func dashboardStatsKey(userID string) string {
	return dashboardStatsKeyPrefix + userID
}

// DashboardStats is the aggregate payload behind the student dashboard.
type DashboardStats struct {
	MonthlyCount int                `json:"monthly_count"`
	Goal         stats.GoalProgress `json:"goal"`
	Streak       int                `json:"streak"`
	Weekly       stats.WeeklyStats  `json:"weekly"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// DashboardService derives per-student statistics with a short Redis cache in
// front of the heavier queries.
type DashboardService struct {
	attendance dashboardAttendanceRepository
	profiles   dashboardProfileRepository
	cache      dashboardCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(attendance dashboardAttendanceRepository, profiles dashboardProfileRepository, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &DashboardService{
		attendance: attendance,
		profiles:   profiles,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Stats returns the dashboard aggregate for a student.
func (s *DashboardService) Stats(ctx context.Context, userID string) (*DashboardStats, error) {
	cacheKey := dashboardStatsKey(userID)
	if s.cache != nil {
		var cached DashboardStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	now := s.now()

	goal := models.DefaultAttendanceGoal
	profile, err := s.profiles.FindByID(ctx, userID)
	if err == nil {
		goal = profile.Goal()
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthlyCount, err := s.attendance.CountInRange(ctx, userID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count monthly attendance")
	}

	lookback := now.AddDate(0, 0, -stats.DefaultStreakLookback)
	checkIns, err := s.attendance.CheckInsSince(ctx, userID, lookback)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-ins")
	}

	weekStart := now.AddDate(0, 0, -6)
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
	weekRecords, _, err := s.attendance.List(ctx, models.AttendanceFilter{
		UserID:   userID,
		From:     &weekStart,
		PageSize: 500,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly attendance")
	}

	result := &DashboardStats{
		MonthlyCount: monthlyCount,
		Goal:         stats.ComputeGoalProgress(goal, monthlyCount),
		Streak:       stats.CurrentStreak(now, checkIns, stats.DefaultStreakLookback),
		Weekly:       stats.ComputeWeeklyStats(now, weekRecords),
		GeneratedAt:  now,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
