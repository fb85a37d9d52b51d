// Package stats holds the pure attendance derivations shared by the student
// dashboard, the goals card and the report exporters.
package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/openshelf/library-portal-api/internal/models"
)

// InProgress is rendered for records that have no check-out yet. Open records
// use this label everywhere; elapsed-to-now is never shown.
const InProgress = "In Progress"

// DefaultStreakLookback bounds how far back the streak walk goes.
const DefaultStreakLookback = 365

// FormatDuration renders the elapsed time between check-in and check-out as
// "{H}h {M}m" with floor truncation. A nil check-out yields InProgress and a
// check-out before check-in clamps to zero.
func FormatDuration(checkIn time.Time, checkOut *time.Time) string {
	if checkOut == nil {
		return InProgress
	}
	diff := checkOut.Sub(checkIn)
	if diff < 0 {
		diff = 0
	}
	hours := int(diff.Hours())
	minutes := int(diff.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// CurrentStreak counts consecutive calendar days ending today with at least
// one check-in. A day without a record for today returns 0 immediately: the
// streak is "current", not "most recent".
func CurrentStreak(now time.Time, checkIns []time.Time, lookbackDays int) int {
	if lookbackDays <= 0 {
		lookbackDays = DefaultStreakLookback
	}

	attended := make(map[string]struct{}, len(checkIns))
	for _, t := range checkIns {
		attended[dayKey(t)] = struct{}{}
	}

	streak := 0
	for i := 0; i < lookbackDays; i++ {
		day := now.AddDate(0, 0, -i)
		if _, ok := attended[dayKey(day)]; !ok {
			break
		}
		streak++
	}
	return streak
}

// GoalProgress describes how far a student is into their monthly goal.
type GoalProgress struct {
	Goal      int    `json:"goal"`
	Count     int    `json:"count"`
	Percent   int    `json:"percent"`
	Remaining int    `json:"remaining"`
	Achieved  bool   `json:"achieved"`
	Message   string `json:"message"`
}

// ComputeGoalProgress clamps the percentage at 100 and never reports negative
// remaining days. Goal values below 1 fall back to the profile default.
func ComputeGoalProgress(goal, count int) GoalProgress {
	if goal <= 0 {
		goal = models.DefaultAttendanceGoal
	}
	percent := int(math.Round(float64(count) / float64(goal) * 100))
	if percent > 100 {
		percent = 100
	}
	remaining := goal - count
	if remaining < 0 {
		remaining = 0
	}
	p := GoalProgress{
		Goal:      goal,
		Count:     count,
		Percent:   percent,
		Remaining: remaining,
		Achieved:  percent >= 100,
	}
	if p.Achieved {
		p.Message = "Goal achieved!"
	} else {
		p.Message = fmt.Sprintf("%d days to go", remaining)
	}
	return p
}

// DayActivity is one bucket of the trailing-week chart.
type DayActivity struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// WeeklyStats aggregates the trailing seven calendar days, oldest first.
type WeeklyStats struct {
	Days       []DayActivity `json:"days"`
	TotalHours float64       `json:"total_hours"`
	AvgHours   float64       `json:"avg_hours"`
	Streak     int           `json:"streak"`
}

// ComputeWeeklyStats buckets in-library minutes per day for today and the six
// preceding days. Records without a check-out contribute zero minutes here,
// though their day still counts toward the streak.
func ComputeWeeklyStats(now time.Time, records []models.AttendanceRecord) WeeklyStats {
	days := make([]DayActivity, 0, 7)
	total := 0.0
	for offset := 6; offset >= 0; offset-- {
		day := now.AddDate(0, 0, -offset)
		key := dayKey(day)

		minutes := 0.0
		for _, r := range records {
			if dayKey(r.CheckIn) != key || r.CheckOut == nil {
				continue
			}
			minutes += r.CheckOut.Sub(r.CheckIn).Minutes()
		}

		hours := roundTenth(minutes / 60)
		total += hours
		days = append(days, DayActivity{Day: day.Format("Mon"), Hours: hours})
	}

	checkIns := make([]time.Time, 0, len(records))
	for _, r := range records {
		checkIns = append(checkIns, r.CheckIn)
	}

	return WeeklyStats{
		Days:       days,
		TotalHours: roundTenth(total),
		AvgHours:   roundTenth(total / 7),
		Streak:     CurrentStreak(now, checkIns, DefaultStreakLookback),
	}
}

// OccupancyPercent derives the displayed capacity percentage, clamped at 100.
// A zero total yields 0 rather than dividing by zero.
func OccupancyPercent(occupied, total int) int {
	if total <= 0 {
		return 0
	}
	percent := int(math.Round(float64(occupied) / float64(total) * 100))
	if percent > 100 {
		percent = 100
	}
	return percent
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
