package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.SeatBooking) error
	FindByID(ctx context.Context, id string) (*models.SeatBooking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.SeatBooking, int, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	HasOverlap(ctx context.Context, seatNumber string, date time.Time, startTime, endTime string) (bool, error)
}

// BookingService implements the seat booking lifecycle. Bookings start
// pending; admins confirm or cancel, students may cancel their own.
type BookingService struct {
	repo      bookingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs a BookingService instance.
func NewBookingService(repo bookingRepository, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookingService{repo: repo, validator: validate, logger: logger}
}

// Create requests a seat for the caller.
func (s *BookingService) Create(ctx context.Context, userID string, req models.CreateBookingRequest) (*models.SeatBooking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	date, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date")
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}

	overlaps, err := s.repo.HasOverlap(ctx, req.SeatNumber, date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seat availability")
	}
	if overlaps {
		return nil, appErrors.Clone(appErrors.ErrConflict, "seat is already booked for that window")
	}

	booking := &models.SeatBooking{
		UserID:      userID,
		SeatNumber:  req.SeatNumber,
		BookingDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.BookingPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	return booking, nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, userID string, page, pageSize int) ([]models.SeatBooking, int, error) {
	return s.List(ctx, models.BookingFilter{UserID: userID, Page: page, PageSize: pageSize})
}

// List returns bookings matching the filter.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.SeatBooking, int, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, total, nil
}

// Cancel lets a student cancel their own booking.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID string) (*models.SeatBooking, error) {
	booking, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another student")
	}
	return s.transition(ctx, booking, models.BookingCancelled)
}

// SetStatus is the admin transition entry point.
func (s *BookingService) SetStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.SeatBooking, error) {
	booking, err := s.find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, booking, status)
}

func (s *BookingService) find(ctx context.Context, bookingID string) (*models.SeatBooking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) transition(ctx context.Context, booking *models.SeatBooking, next models.BookingStatus) (*models.SeatBooking, error) {
	if !validTransition(booking.Status, next) {
		return nil, appErrors.Clone(appErrors.ErrBookingTransition, "")
	}
	if err := s.repo.UpdateStatus(ctx, booking.ID, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}
	booking.Status = next
	booking.UpdatedAt = time.Now().UTC()
	return booking, nil
}

// validTransition encodes the lifecycle: pending may confirm or cancel,
// confirmed may only cancel, cancelled is terminal.
func validTransition(from, to models.BookingStatus) bool {
	switch from {
	case models.BookingPending:
		return to == models.BookingConfirmed || to == models.BookingCancelled
	case models.BookingConfirmed:
		return to == models.BookingCancelled
	default:
		return false
	}
}
