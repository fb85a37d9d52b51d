package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/library-portal-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.AttendanceRecord{UserID: "u1"}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CheckIn.IsZero())
}

func TestAttendanceRepositoryLatestOpenNoRows(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	mock.ExpectQuery("SELECT id, user_id, check_in, check_out, purpose FROM attendance").
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LatestOpen(context.Background(), "u1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)

	rows := sqlmock.NewRows([]string{"id", "user_id", "check_in", "check_out", "purpose"}).
		AddRow("a1", "u1", now, nil, nil)
	mock.ExpectQuery("SELECT id, user_id, check_in, check_out, purpose FROM attendance").
		WithArgs("u1", from).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{UserID: "u1", From: &from})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.True(t, records[0].Open())
}

func TestAttendanceRepositoryCloseAllOpen(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)
	checkOut := time.Now().UTC()
	mock.ExpectExec("UPDATE attendance SET check_out").
		WithArgs(checkOut).
		WillReturnResult(sqlmock.NewResult(0, 4))

	closed, err := repo.CloseAllOpen(context.Background(), checkOut)
	require.NoError(t, err)
	assert.Equal(t, int64(4), closed)
}
