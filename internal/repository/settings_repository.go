package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openshelf/library-portal-api/internal/models"
)

// SettingsRepository provides database access for the library capacity row and
// the occupancy aggregate.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetCapacity returns the singleton capacity row.
func (r *SettingsRepository) GetCapacity(ctx context.Context) (*models.LibrarySettings, error) {
	const query = `SELECT id, total_seats, updated_at FROM library_settings ORDER BY id ASC LIMIT 1`
	var settings models.LibrarySettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get library capacity: %w", err)
	}
	return &settings, nil
}

// UpdateCapacity changes the total seat count, inserting the singleton row on
// first use.
func (r *SettingsRepository) UpdateCapacity(ctx context.Context, totalSeats int) error {
	const query = `INSERT INTO library_settings (id, total_seats, updated_at) VALUES (1, $1, $2)
        ON CONFLICT (id) DO UPDATE SET total_seats = EXCLUDED.total_seats, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, totalSeats, time.Now().UTC()); err != nil {
		return fmt.Errorf("update library capacity: %w", err)
	}
	return nil
}

// OccupancySnapshot calls the get_library_status() database function. The
// function has historically returned either a bare JSON object or a
// one-element array wrapping it, so both shapes are accepted here and callers
// always see the flat snapshot.
func (r *SettingsRepository) OccupancySnapshot(ctx context.Context) (*models.OccupancySnapshot, error) {
	const query = `SELECT get_library_status()`
	var raw []byte
	if err := r.db.GetContext(ctx, &raw, query); err != nil {
		return nil, fmt.Errorf("get library status: %w", err)
	}

	snapshot, err := decodeOccupancy(raw)
	if err != nil {
		return nil, fmt.Errorf("decode library status: %w", err)
	}
	return snapshot, nil
}

func decodeOccupancy(raw []byte) (*models.OccupancySnapshot, error) {
	var snapshot models.OccupancySnapshot
	if err := json.Unmarshal(raw, &snapshot); err == nil {
		return &snapshot, nil
	}

	var wrapped []models.OccupancySnapshot
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped) == 0 {
		return &models.OccupancySnapshot{}, nil
	}
	return &wrapped[0], nil
}
