package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/library-portal-api/internal/models"
)

// FeedbackRepository provides database access for feedback submissions.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new instance of FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a new feedback submission in pending state.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now
	if feedback.Status == "" {
		feedback.Status = models.FeedbackPending
	}

	const query = `INSERT INTO feedback (id, user_id, subject, message, rating, status, created_at, updated_at)
        VALUES (:id, :user_id, :subject, :message, :rating, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// FindByID returns one submission by identifier.
func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	const query = `SELECT id, user_id, subject, message, rating, status, created_at, updated_at FROM feedback WHERE id = $1 LIMIT 1`
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	return &feedback, nil
}

// ListByUser returns a student's own submissions, newest first.
func (r *FeedbackRepository) ListByUser(ctx context.Context, userID string) ([]models.Feedback, error) {
	const query = `SELECT id, user_id, subject, message, rating, status, created_at, updated_at FROM feedback WHERE user_id = $1 ORDER BY created_at DESC`
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list feedback by user: %w", err)
	}
	return items, nil
}

// List returns submissions optionally filtered by status, newest first.
func (r *FeedbackRepository) List(ctx context.Context, status *models.FeedbackStatus, page, pageSize int) ([]models.Feedback, int, error) {
	baseQuery := `FROM feedback WHERE 1=1`
	var args []interface{}

	if status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *status)
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, user_id, subject, message, rating, status, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	return items, total, nil
}

// UpdateStatus advances the review state.
func (r *FeedbackRepository) UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) error {
	const query = `UPDATE feedback SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update feedback status: %w", err)
	}
	return nil
}
