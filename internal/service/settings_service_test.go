package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type mockSettingsRepo struct {
	capacity *models.LibrarySettings
	updated  int
}

func (m *mockSettingsRepo) GetCapacity(ctx context.Context) (*models.LibrarySettings, error) {
	if m.capacity == nil {
		return nil, sql.ErrNoRows
	}
	return m.capacity, nil
}

func (m *mockSettingsRepo) UpdateCapacity(ctx context.Context, totalSeats int) error {
	m.updated = totalSeats
	return nil
}

func newTestSettingsService(t *testing.T, repo *mockSettingsRepo) *SettingsService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portal-settings.json")
	return NewSettingsService(repo, path, validator.New(), zap.NewNop())
}

func TestSettingsPortalDefaults(t *testing.T) {
	svc := newTestSettingsService(t, &mockSettingsRepo{})

	settings, err := svc.Portal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPortalSettings(), settings)
}

func TestSettingsPortalSaveAndReload(t *testing.T) {
	svc := newTestSettingsService(t, &mockSettingsRepo{})

	saved := models.PortalSettings{
		LibraryName:  "Main Reading Room",
		OpeningTime:  "07:30",
		ClosingTime:  "21:00",
		QRAttendance: true,
		AutoCheckout: true,
		Notice:       "Closed on public holidays",
	}
	require.NoError(t, svc.SavePortal(context.Background(), saved))

	settings, err := svc.Portal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, settings)
}

func TestSettingsPortalCorruptFile(t *testing.T) {
	svc := newTestSettingsService(t, &mockSettingsRepo{})
	require.NoError(t, os.WriteFile(svc.filePath, []byte("{not json"), 0o644))

	settings, err := svc.Portal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPortalSettings(), settings)
}

func TestSettingsCapacityMissingRow(t *testing.T) {
	svc := newTestSettingsService(t, &mockSettingsRepo{})

	capacity, err := svc.Capacity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, capacity.ID)
	assert.Zero(t, capacity.TotalSeats)
}

func TestSettingsUpdateCapacity(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := newTestSettingsService(t, repo)

	require.NoError(t, svc.UpdateCapacity(context.Background(), models.UpdateCapacityRequest{TotalSeats: 80}))
	assert.Equal(t, 80, repo.updated)

	err := svc.UpdateCapacity(context.Background(), models.UpdateCapacityRequest{TotalSeats: -1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
