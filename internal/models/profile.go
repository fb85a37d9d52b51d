package models

import "time"

// DefaultAttendanceGoal applies when a profile has no explicit monthly goal.
const DefaultAttendanceGoal = 20

// Profile holds the per-user portal profile. The row id equals the user id.
type Profile struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	StudentID      *string   `db:"student_id" json:"student_id,omitempty"`
	SeatNumber     *string   `db:"seat_number" json:"seat_number,omitempty"`
	AttendanceGoal int       `db:"attendance_goal" json:"attendance_goal"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Goal returns the effective monthly goal.
func (p *Profile) Goal() int {
	if p == nil || p.AttendanceGoal <= 0 {
		return DefaultAttendanceGoal
	}
	return p.AttendanceGoal
}

// UpdateProfileRequest captures the student-editable profile fields.
type UpdateProfileRequest struct {
	FullName       string  `json:"full_name" validate:"required"`
	Phone          *string `json:"phone"`
	AttendanceGoal *int    `json:"attendance_goal" validate:"omitempty,min=1"`
}

// ProfileIdentity is the minimal display identity used by report rows.
type ProfileIdentity struct {
	FullName  string
	StudentID string
}
