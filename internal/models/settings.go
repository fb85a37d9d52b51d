package models

import "time"

// LibrarySettings is the singleton capacity row.
type LibrarySettings struct {
	ID         int       `db:"id" json:"id"`
	TotalSeats int       `db:"total_seats" json:"total_seats"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateCapacityRequest changes the total seat capacity.
type UpdateCapacityRequest struct {
	TotalSeats int `json:"total_seats" validate:"required,min=0"`
}

// PortalSettings is the JSON-file presentation settings blob, read on demand
// and overwritten wholesale on save. It never touches a backend table.
type PortalSettings struct {
	LibraryName        string `json:"library_name"`
	OpeningTime        string `json:"opening_time"`
	ClosingTime        string `json:"closing_time"`
	QRAttendance       bool   `json:"qr_attendance"`
	AutoCheckout       bool   `json:"auto_checkout"`
	Notice             string `json:"notice"`
	EmailNotifications bool   `json:"email_notifications"`
}

// DefaultPortalSettings returns the settings used before any save.
func DefaultPortalSettings() PortalSettings {
	return PortalSettings{
		LibraryName:  "Library",
		OpeningTime:  "08:00",
		ClosingTime:  "20:00",
		QRAttendance: true,
	}
}
