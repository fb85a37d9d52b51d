package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/library-portal-api/internal/models"
)

// BookingRepository provides database access for seat bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new instance of BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a new booking in pending state.
func (r *BookingRepository) Create(ctx context.Context, booking *models.SeatBooking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = models.BookingPending
	}

	const query = `INSERT INTO seat_bookings (id, user_id, seat_number, booking_date, start_time, end_time, status, created_at, updated_at)
        VALUES (:id, :user_id, :seat_number, :booking_date, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// FindByID returns a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.SeatBooking, error) {
	const query = `SELECT id, user_id, seat_number, booking_date, start_time, end_time, status, created_at, updated_at FROM seat_bookings WHERE id = $1 LIMIT 1`
	var booking models.SeatBooking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// List returns bookings matching the filter with total count, newest first.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.SeatBooking, int, error) {
	baseQuery := `FROM seat_bookings WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("booking_date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, user_id, seat_number, booking_date, start_time, end_time, status, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var bookings []models.SeatBooking
	if err := r.db.SelectContext(ctx, &bookings, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// UpdateStatus changes the lifecycle state of a booking.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const query = `UPDATE seat_bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// HasOverlap reports whether the seat already has a non-cancelled booking on
// the date whose time window overlaps [startTime, endTime).
func (r *BookingRepository) HasOverlap(ctx context.Context, seatNumber string, date time.Time, startTime, endTime string) (bool, error) {
	const query = `SELECT COUNT(*) FROM seat_bookings
        WHERE seat_number = $1 AND booking_date = $2 AND status <> $3
        AND start_time < $5 AND end_time > $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, seatNumber, date, models.BookingCancelled, startTime, endTime); err != nil {
		return false, fmt.Errorf("check booking overlap: %w", err)
	}
	return count > 0, nil
}
