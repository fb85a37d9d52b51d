package models

// QRPayload is the compact token embedded in a student's attendance QR code.
// Timestamp is Unix milliseconds at generation time.
type QRPayload struct {
	StudentID string `json:"student_id"`
	Timestamp int64  `json:"timestamp"`
}
