package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type settingsRepository interface {
	GetCapacity(ctx context.Context) (*models.LibrarySettings, error)
	UpdateCapacity(ctx context.Context, totalSeats int) error
}

// SettingsService manages the capacity row and the file-backed portal
// settings. The JSON file is read on demand and replaced wholesale on save,
// guarded by a process-wide mutex.
type SettingsService struct {
	repo      settingsRepository
	filePath  string
	validator *validator.Validate
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewSettingsService constructs a SettingsService instance.
func NewSettingsService(repo settingsRepository, filePath string, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if filePath == "" {
		filePath = "./portal-settings.json"
	}
	return &SettingsService{repo: repo, filePath: filePath, validator: validate, logger: logger}
}

// Portal returns the file-backed presentation settings, falling back to the
// defaults when the file does not exist yet.
func (s *SettingsService) Portal(_ context.Context) (models.PortalSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.DefaultPortalSettings(), nil
		}
		return models.PortalSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read portal settings")
	}

	var settings models.PortalSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("portal settings file is corrupt, serving defaults", zap.Error(err))
		return models.DefaultPortalSettings(), nil
	}
	return settings, nil
}

// SavePortal replaces the presentation settings file.
func (s *SettingsService) SavePortal(_ context.Context, settings models.PortalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode portal settings")
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare settings directory")
	}
	if err := os.WriteFile(s.filePath, raw, 0o644); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write portal settings")
	}
	return nil
}

// Capacity returns the singleton seat capacity row. A missing row yields the
// zero capacity rather than an error.
func (s *SettingsService) Capacity(ctx context.Context) (*models.LibrarySettings, error) {
	settings, err := s.repo.GetCapacity(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.LibrarySettings{ID: 1, UpdatedAt: time.Now().UTC()}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load capacity")
	}
	return settings, nil
}

// UpdateCapacity changes the total seat count.
func (s *SettingsService) UpdateCapacity(ctx context.Context, req models.UpdateCapacityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capacity payload")
	}
	if err := s.repo.UpdateCapacity(ctx, req.TotalSeats); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update capacity")
	}
	return nil
}
