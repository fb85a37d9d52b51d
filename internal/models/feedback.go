package models

import "time"

// FeedbackStatus is advanced by admins only: pending → reviewed → resolved.
type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "pending"
	FeedbackReviewed FeedbackStatus = "reviewed"
	FeedbackResolved FeedbackStatus = "resolved"
)

// Feedback is one student submission.
type Feedback struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Subject   string         `db:"subject" json:"subject"`
	Message   string         `db:"message" json:"message"`
	Rating    int            `db:"rating" json:"rating"`
	Status    FeedbackStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// CreateFeedbackRequest is the student submission payload.
type CreateFeedbackRequest struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

// UpdateFeedbackStatusRequest advances the review state.
type UpdateFeedbackStatusRequest struct {
	Status FeedbackStatus `json:"status" validate:"required,oneof=pending reviewed resolved"`
}
