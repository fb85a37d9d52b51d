package models

import "time"

// AttendanceRecord is one check-in event; a null check_out means the user is
// currently present. At most one open record per user holds by convention
// only, never by constraint.
type AttendanceRecord struct {
	ID       string     `db:"id" json:"id"`
	UserID   string     `db:"user_id" json:"user_id"`
	CheckIn  time.Time  `db:"check_in" json:"check_in"`
	CheckOut *time.Time `db:"check_out" json:"check_out,omitempty"`
	Purpose  *string    `db:"purpose" json:"purpose,omitempty"`
}

// Open reports whether the record has no check-out yet.
func (r *AttendanceRecord) Open() bool {
	return r != nil && r.CheckOut == nil
}

// CheckInRequest starts a new attendance record.
type CheckInRequest struct {
	Purpose string `json:"purpose"`
}

// ScanCheckInRequest carries the decoded QR token from the scanner.
type ScanCheckInRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// AttendanceStatus summarises the caller's presence.
type AttendanceStatus struct {
	CheckedIn bool       `json:"checked_in"`
	Since     *time.Time `json:"since,omitempty"`
}

// AttendanceFilter drives admin attendance listings.
type AttendanceFilter struct {
	UserID   string
	From     *time.Time
	To       *time.Time
	OpenOnly bool
	Page     int
	PageSize int
}
