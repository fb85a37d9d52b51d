package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	FindByID(ctx context.Context, id string) (*models.Feedback, error)
	ListByUser(ctx context.Context, userID string) ([]models.Feedback, error)
	List(ctx context.Context, status *models.FeedbackStatus, page, pageSize int) ([]models.Feedback, int, error)
	UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) error
}

// FeedbackService implements the feedback submission and review flow.
type FeedbackService struct {
	repo      feedbackRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService constructs a FeedbackService instance.
func NewFeedbackService(repo feedbackRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{repo: repo, validator: validate, logger: logger}
}

// Submit records a student's feedback.
func (s *FeedbackService) Submit(ctx context.Context, userID string, req models.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	feedback := &models.Feedback{
		UserID:  userID,
		Subject: req.Subject,
		Message: req.Message,
		Rating:  req.Rating,
		Status:  models.FeedbackPending,
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}
	return feedback, nil
}

// ListMine returns a student's own submissions.
func (s *FeedbackService) ListMine(ctx context.Context, userID string) ([]models.Feedback, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	return items, nil
}

// List returns submissions for the admin review queue.
func (s *FeedbackService) List(ctx context.Context, status *models.FeedbackStatus, page, pageSize int) ([]models.Feedback, int, error) {
	items, total, err := s.repo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	return items, total, nil
}

// UpdateStatus advances the review state of a submission.
func (s *FeedbackService) UpdateStatus(ctx context.Context, id string, req models.UpdateFeedbackStatusRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback status payload")
	}

	feedback, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}

	if !validFeedbackTransition(feedback.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrFeedbackTransition, "")
	}
	if err := s.repo.UpdateStatus(ctx, feedback.ID, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feedback status")
	}
	feedback.Status = req.Status
	return feedback, nil
}

// validFeedbackTransition encodes the review lifecycle: pending may advance to
// reviewed or straight to resolved, reviewed may resolve, resolved is final.
func validFeedbackTransition(from, to models.FeedbackStatus) bool {
	switch from {
	case models.FeedbackPending:
		return to == models.FeedbackReviewed || to == models.FeedbackResolved
	case models.FeedbackReviewed:
		return to == models.FeedbackResolved
	default:
		return false
	}
}
