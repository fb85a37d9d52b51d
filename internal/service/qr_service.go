package service

import (
	"encoding/json"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

// DefaultQRSize is the PNG edge length in pixels.
const DefaultQRSize = 256

// QRService renders per-student attendance codes. The payload is a small JSON
// token carrying the owner and a generation timestamp in Unix milliseconds.
type QRService struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewQRService constructs a QRService instance.
func NewQRService(logger *zap.Logger) *QRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRService{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Payload returns the JSON token embedded in a student's code.
func (s *QRService) Payload(userID string) (string, error) {
	raw, err := json.Marshal(models.QRPayload{
		StudentID: userID,
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode QR payload")
	}
	return string(raw), nil
}

// Image renders the student's code as a PNG.
func (s *QRService) Image(userID string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	payload, err := s.Payload(userID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR code")
	}
	return png, nil
}
