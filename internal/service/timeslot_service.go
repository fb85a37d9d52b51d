package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type timeSlotRepository interface {
	Create(ctx context.Context, slot *models.TimeSlot) error
	ListByUser(ctx context.Context, userID string) ([]models.TimeSlot, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// TimeSlotService manages admin-assigned study windows.
type TimeSlotService struct {
	repo      timeSlotRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService constructs a TimeSlotService instance.
func NewTimeSlotService(repo timeSlotRepository, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TimeSlotService{repo: repo, validator: validate, logger: logger}
}

// ListForUser returns a student's assigned slots.
func (s *TimeSlotService) ListForUser(ctx context.Context, userID string) ([]models.TimeSlot, error) {
	slots, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// Assign replaces a student's assigned slots with the provided set.
func (s *TimeSlotService) Assign(ctx context.Context, userID string, reqs []models.TimeSlotRequest) ([]models.TimeSlot, error) {
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
		}
		if req.StartTime >= req.EndTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, "slot start must be before end")
		}
	}

	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear time slots")
	}

	slots := make([]models.TimeSlot, 0, len(reqs))
	for _, req := range reqs {
		slot := &models.TimeSlot{
			UserID:    userID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		if err := s.repo.Create(ctx, slot); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign time slot")
		}
		slots = append(slots, *slot)
	}
	return slots, nil
}
