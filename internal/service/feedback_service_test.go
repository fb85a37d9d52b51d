package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type mockFeedbackRepo struct {
	feedback  *models.Feedback
	items     []models.Feedback
	created   *models.Feedback
	newStatus models.FeedbackStatus
}

func (m *mockFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	feedback.ID = "f1"
	m.created = feedback
	return nil
}

func (m *mockFeedbackRepo) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	if m.feedback == nil {
		return nil, sql.ErrNoRows
	}
	return m.feedback, nil
}

func (m *mockFeedbackRepo) ListByUser(ctx context.Context, userID string) ([]models.Feedback, error) {
	return m.items, nil
}

func (m *mockFeedbackRepo) List(ctx context.Context, status *models.FeedbackStatus, page, pageSize int) ([]models.Feedback, int, error) {
	return m.items, len(m.items), nil
}

func (m *mockFeedbackRepo) UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) error {
	m.newStatus = status
	return nil
}

func newTestFeedbackService(repo *mockFeedbackRepo) *FeedbackService {
	return NewFeedbackService(repo, validator.New(), zap.NewNop())
}

func TestFeedbackSubmit(t *testing.T) {
	repo := &mockFeedbackRepo{}
	svc := newTestFeedbackService(repo)

	feedback, err := svc.Submit(context.Background(), "u1", models.CreateFeedbackRequest{
		Subject: "Quiet zone",
		Message: "The quiet zone is too noisy in the afternoon",
		Rating:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackPending, feedback.Status)
	assert.Equal(t, "u1", repo.created.UserID)
}

func TestFeedbackSubmitRatingBounds(t *testing.T) {
	svc := newTestFeedbackService(&mockFeedbackRepo{})

	_, err := svc.Submit(context.Background(), "u1", models.CreateFeedbackRequest{
		Subject: "Rating",
		Message: "Out of range",
		Rating:  6,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedbackUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		from models.FeedbackStatus
		to   models.FeedbackStatus
		ok   bool
	}{
		{models.FeedbackPending, models.FeedbackReviewed, true},
		{models.FeedbackPending, models.FeedbackResolved, true},
		{models.FeedbackReviewed, models.FeedbackResolved, true},
		{models.FeedbackReviewed, models.FeedbackPending, false},
		{models.FeedbackResolved, models.FeedbackReviewed, false},
		{models.FeedbackResolved, models.FeedbackPending, false},
	}

	for _, tc := range cases {
		repo := &mockFeedbackRepo{feedback: &models.Feedback{ID: "f1", UserID: "u1", Status: tc.from}}
		svc := newTestFeedbackService(repo)

		feedback, err := svc.UpdateStatus(context.Background(), "f1", models.UpdateFeedbackStatusRequest{Status: tc.to})
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.to, feedback.Status)
		} else {
			require.Error(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, appErrors.ErrFeedbackTransition.Code, appErrors.FromError(err).Code)
		}
	}
}

func TestFeedbackUpdateStatusNotFound(t *testing.T) {
	svc := newTestFeedbackService(&mockFeedbackRepo{})

	_, err := svc.UpdateStatus(context.Background(), "missing", models.UpdateFeedbackStatusRequest{Status: models.FeedbackReviewed})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
