package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type mockBookingRepo struct {
	booking   *models.SeatBooking
	bookings  []models.SeatBooking
	overlap   bool
	created   *models.SeatBooking
	newStatus models.BookingStatus
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *models.SeatBooking) error {
	booking.ID = "b1"
	m.created = booking
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.SeatBooking, error) {
	if m.booking == nil {
		return nil, sql.ErrNoRows
	}
	return m.booking, nil
}

func (m *mockBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.SeatBooking, int, error) {
	return m.bookings, len(m.bookings), nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	m.newStatus = status
	return nil
}

func (m *mockBookingRepo) HasOverlap(ctx context.Context, seatNumber string, date time.Time, startTime, endTime string) (bool, error) {
	return m.overlap, nil
}

func newTestBookingService(repo *mockBookingRepo) *BookingService {
	return NewBookingService(repo, validator.New(), zap.NewNop())
}

func TestBookingCreate(t *testing.T) {
	repo := &mockBookingRepo{}
	svc := newTestBookingService(repo)

	booking, err := svc.Create(context.Background(), "u1", models.CreateBookingRequest{
		SeatNumber:  "A-12",
		BookingDate: "2026-04-01",
		StartTime:   "09:00",
		EndTime:     "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "u1", booking.UserID)
	assert.Equal(t, "A-12", repo.created.SeatNumber)
}

func TestBookingCreateOverlap(t *testing.T) {
	repo := &mockBookingRepo{overlap: true}
	svc := newTestBookingService(repo)

	_, err := svc.Create(context.Background(), "u1", models.CreateBookingRequest{
		SeatNumber:  "A-12",
		BookingDate: "2026-04-01",
		StartTime:   "09:00",
		EndTime:     "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBookingCreateInvertedWindow(t *testing.T) {
	svc := newTestBookingService(&mockBookingRepo{})

	_, err := svc.Create(context.Background(), "u1", models.CreateBookingRequest{
		SeatNumber:  "A-12",
		BookingDate: "2026-04-01",
		StartTime:   "11:00",
		EndTime:     "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingCancelOwnership(t *testing.T) {
	repo := &mockBookingRepo{booking: &models.SeatBooking{ID: "b1", UserID: "owner", Status: models.BookingPending}}
	svc := newTestBookingService(repo)

	_, err := svc.Cancel(context.Background(), "intruder", "b1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	booking, err := svc.Cancel(context.Background(), "owner", "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
}

func TestBookingSetStatusTransitions(t *testing.T) {
	cases := []struct {
		from models.BookingStatus
		to   models.BookingStatus
		ok   bool
	}{
		{models.BookingPending, models.BookingConfirmed, true},
		{models.BookingPending, models.BookingCancelled, true},
		{models.BookingConfirmed, models.BookingCancelled, true},
		{models.BookingConfirmed, models.BookingPending, false},
		{models.BookingCancelled, models.BookingConfirmed, false},
		{models.BookingCancelled, models.BookingPending, false},
	}

	for _, tc := range cases {
		repo := &mockBookingRepo{booking: &models.SeatBooking{ID: "b1", UserID: "u1", Status: tc.from}}
		svc := newTestBookingService(repo)

		booking, err := svc.SetStatus(context.Background(), "b1", tc.to)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.to, booking.Status)
		} else {
			require.Error(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, appErrors.ErrBookingTransition.Code, appErrors.FromError(err).Code)
		}
	}
}

func TestBookingSetStatusNotFound(t *testing.T) {
	svc := newTestBookingService(&mockBookingRepo{})

	_, err := svc.SetStatus(context.Background(), "missing", models.BookingConfirmed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
