package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSettingsRepositoryUpdateCapacity(t *testing.T) {
	db, mock, cleanup := newSettingsRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectExec("INSERT INTO library_settings").
		WithArgs(120, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdateCapacity(context.Background(), 120))
}

func TestSettingsRepositoryOccupancySnapshotObject(t *testing.T) {
	db, mock, cleanup := newSettingsRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery("SELECT get_library_status").
		WillReturnRows(sqlmock.NewRows([]string{"get_library_status"}).
			AddRow([]byte(`{"current_occupied": 12, "total_seats": 100, "available": 88}`)))

	snapshot, err := repo.OccupancySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, snapshot.Occupied)
	assert.Equal(t, 100, snapshot.TotalSeats)
	assert.Equal(t, 88, snapshot.Available)
}

func TestSettingsRepositoryOccupancySnapshotArray(t *testing.T) {
	db, mock, cleanup := newSettingsRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery("SELECT get_library_status").
		WillReturnRows(sqlmock.NewRows([]string{"get_library_status"}).
			AddRow([]byte(`[{"current_occupied": 5, "total_seats": 50, "available": 45}]`)))

	snapshot, err := repo.OccupancySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.Occupied)
	assert.Equal(t, 45, snapshot.Available)
}

func TestDecodeOccupancyEmptyArray(t *testing.T) {
	snapshot, err := decodeOccupancy([]byte(`[]`))
	require.NoError(t, err)
	assert.Zero(t, snapshot.Occupied)
	assert.Zero(t, snapshot.TotalSeats)
}

func TestDecodeOccupancyGarbage(t *testing.T) {
	_, err := decodeOccupancy([]byte(`not json`))
	assert.Error(t, err)
}
