package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/library-portal-api/internal/models"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %s: %v", value, err)
	}
	return parsed
}

func TestFormatDurationTruncates(t *testing.T) {
	checkIn := ts(t, "2025-03-10T10:00:00Z")
	checkOut := ts(t, "2025-03-10T12:45:30Z")
	assert.Equal(t, "2h 45m", FormatDuration(checkIn, &checkOut))
}

func TestFormatDurationOpenRecord(t *testing.T) {
	checkIn := ts(t, "2025-03-10T10:00:00Z")
	assert.Equal(t, InProgress, FormatDuration(checkIn, nil))
}

func TestFormatDurationClampsNegative(t *testing.T) {
	checkIn := ts(t, "2025-03-10T12:00:00Z")
	checkOut := ts(t, "2025-03-10T10:00:00Z")
	assert.Equal(t, "0h 0m", FormatDuration(checkIn, &checkOut))
}

func TestFormatDurationZero(t *testing.T) {
	checkIn := ts(t, "2025-03-10T10:00:00Z")
	checkOut := checkIn
	assert.Equal(t, "0h 0m", FormatDuration(checkIn, &checkOut))
}

func TestCurrentStreakConsecutiveDays(t *testing.T) {
	now := ts(t, "2025-03-10T15:00:00Z")
	checkIns := []time.Time{
		ts(t, "2025-03-10T09:00:00Z"),
		ts(t, "2025-03-09T10:30:00Z"),
		ts(t, "2025-03-08T11:00:00Z"),
		// gap on 2025-03-07
		ts(t, "2025-03-06T09:00:00Z"),
	}
	assert.Equal(t, 3, CurrentStreak(now, checkIns, 0))
}

func TestCurrentStreakResetsWithoutToday(t *testing.T) {
	now := ts(t, "2025-03-10T15:00:00Z")
	checkIns := []time.Time{
		ts(t, "2025-03-09T10:30:00Z"),
		ts(t, "2025-03-08T11:00:00Z"),
	}
	// Yesterday attended, today missed: the current streak is zero, not two.
	assert.Equal(t, 0, CurrentStreak(now, checkIns, 0))
}

func TestCurrentStreakEmpty(t *testing.T) {
	now := ts(t, "2025-03-10T15:00:00Z")
	assert.Equal(t, 0, CurrentStreak(now, nil, 0))
}

func TestCurrentStreakMultipleRecordsSameDay(t *testing.T) {
	now := ts(t, "2025-03-10T15:00:00Z")
	checkIns := []time.Time{
		ts(t, "2025-03-10T09:00:00Z"),
		ts(t, "2025-03-10T14:00:00Z"),
		ts(t, "2025-03-09T10:00:00Z"),
	}
	assert.Equal(t, 2, CurrentStreak(now, checkIns, 0))
}

func TestGoalProgressAchieved(t *testing.T) {
	p := ComputeGoalProgress(20, 25)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, 0, p.Remaining)
	assert.True(t, p.Achieved)
	assert.Equal(t, "Goal achieved!", p.Message)
}

func TestGoalProgressPartial(t *testing.T) {
	p := ComputeGoalProgress(20, 5)
	assert.Equal(t, 25, p.Percent)
	assert.Equal(t, 15, p.Remaining)
	assert.False(t, p.Achieved)
	assert.Equal(t, "15 days to go", p.Message)
}

func TestGoalProgressDefaultsGoal(t *testing.T) {
	p := ComputeGoalProgress(0, 10)
	assert.Equal(t, models.DefaultAttendanceGoal, p.Goal)
	assert.Equal(t, 50, p.Percent)
}

func TestWeeklyStatsBuckets(t *testing.T) {
	now := ts(t, "2025-03-10T18:00:00Z")
	checkOut := ts(t, "2025-03-10T11:30:00Z")
	records := []models.AttendanceRecord{
		{UserID: "u1", CheckIn: ts(t, "2025-03-10T09:00:00Z"), CheckOut: &checkOut},
	}

	weekly := ComputeWeeklyStats(now, records)
	assert.Len(t, weekly.Days, 7)
	// Oldest first: today is the last bucket.
	assert.Equal(t, 2.5, weekly.Days[6].Hours)
	for _, day := range weekly.Days[:6] {
		assert.Zero(t, day.Hours)
	}
	assert.Equal(t, 2.5, weekly.TotalHours)
	assert.Equal(t, 0.4, weekly.AvgHours)
	assert.Equal(t, 1, weekly.Streak)
}

func TestWeeklyStatsOpenRecordContributesZero(t *testing.T) {
	now := ts(t, "2025-03-10T18:00:00Z")
	records := []models.AttendanceRecord{
		{UserID: "u1", CheckIn: ts(t, "2025-03-10T09:00:00Z")},
	}

	weekly := ComputeWeeklyStats(now, records)
	assert.Zero(t, weekly.TotalHours)
	// The day still counts as attended for the streak.
	assert.Equal(t, 1, weekly.Streak)
}

func TestOccupancyPercent(t *testing.T) {
	assert.Equal(t, 0, OccupancyPercent(10, 0))
	assert.Equal(t, 100, OccupancyPercent(50, 50))
	assert.Equal(t, 100, OccupancyPercent(60, 50))
	assert.Equal(t, 50, OccupancyPercent(25, 50))
	assert.Equal(t, 33, OccupancyPercent(1, 3))
}
