package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/library-portal-api/internal/models"
)

// TimeSlotRepository provides database access for assigned study windows.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new instance of TimeSlotRepository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// Create assigns a slot to a student.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_time_slots (id, user_id, start_time, end_time, created_at) VALUES (:id, :user_id, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// ListByUser returns a student's assigned slots, earliest start first.
func (r *TimeSlotRepository) ListByUser(ctx context.Context, userID string) ([]models.TimeSlot, error) {
	const query = `SELECT id, user_id, start_time, end_time, created_at FROM student_time_slots WHERE user_id = $1 ORDER BY start_time ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, userID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// DeleteByUser removes all slots for a student.
func (r *TimeSlotRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM student_time_slots WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete time slots: %w", err)
	}
	return nil
}
