package models

import "time"

// AnnouncementPriority orders how prominently an announcement is shown.
type AnnouncementPriority string

const (
	PriorityLow    AnnouncementPriority = "low"
	PriorityNormal AnnouncementPriority = "normal"
	PriorityHigh   AnnouncementPriority = "high"
)

// Announcement is an admin-authored notice, read-only to students.
type Announcement struct {
	ID        string               `db:"id" json:"id"`
	Title     string               `db:"title" json:"title"`
	Content   string               `db:"content" json:"content"`
	Priority  AnnouncementPriority `db:"priority" json:"priority"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementRequest creates or updates an announcement.
type AnnouncementRequest struct {
	Title    string               `json:"title" validate:"required"`
	Content  string               `json:"content" validate:"required"`
	Priority AnnouncementPriority `json:"priority" validate:"required,oneof=low normal high"`
}
