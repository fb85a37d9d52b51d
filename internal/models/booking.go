package models

import "time"

// BookingStatus is the lifecycle state of a seat booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// SeatBooking is one reservation request.
type SeatBooking struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	SeatNumber  string        `db:"seat_number" json:"seat_number"`
	BookingDate time.Time     `db:"booking_date" json:"booking_date"`
	StartTime   string        `db:"start_time" json:"start_time"`
	EndTime     string        `db:"end_time" json:"end_time"`
	Status      BookingStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// CreateBookingRequest is the student booking payload.
type CreateBookingRequest struct {
	SeatNumber  string `json:"seat_number" validate:"required"`
	BookingDate string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
}

// BookingFilter drives booking listings.
type BookingFilter struct {
	UserID   string
	Status   *BookingStatus
	Date     *time.Time
	Page     int
	PageSize int
}
