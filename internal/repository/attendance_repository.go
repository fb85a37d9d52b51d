package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/library-portal-api/internal/models"
)

// AttendanceRepository provides database access for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new check-in record.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CheckIn.IsZero() {
		record.CheckIn = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, user_id, check_in, check_out, purpose) VALUES (:id, :user_id, :check_in, :check_out, :purpose)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// Latest returns the most recent record for a user regardless of state.
func (r *AttendanceRepository) Latest(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, user_id, check_in, check_out, purpose FROM attendance WHERE user_id = $1 ORDER BY check_in DESC LIMIT 1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest attendance record: %w", err)
	}
	return &record, nil
}

// FindByID returns a single record by primary key.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, user_id, check_in, check_out, purpose FROM attendance WHERE id = $1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// LatestOpen returns the most recent record with no check-out, if any.
func (r *AttendanceRepository) LatestOpen(ctx context.Context, userID string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, user_id, check_in, check_out, purpose FROM attendance WHERE user_id = $1 AND check_out IS NULL ORDER BY check_in DESC LIMIT 1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest open attendance record: %w", err)
	}
	return &record, nil
}

// SetCheckOut stamps the check-out time on a record.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, id string, checkOut time.Time) error {
	const query = `UPDATE attendance SET check_out = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, checkOut); err != nil {
		return fmt.Errorf("set check-out: %w", err)
	}
	return nil
}

// ListByUser returns a user's records, most recent check-in first.
func (r *AttendanceRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.AttendanceRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT id, user_id, check_in, check_out, purpose FROM attendance WHERE user_id = $1 ORDER BY check_in DESC LIMIT %d`, limit)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list attendance by user: %w", err)
	}
	return records, nil
}

// List returns records matching the filter, most recent check-in first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	baseQuery := `FROM attendance WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("check_in >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("check_in < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.OpenOnly {
		conditions = append(conditions, "check_out IS NULL")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, user_id, check_in, check_out, purpose %s ORDER BY check_in DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	return records, total, nil
}

// CountInRange counts a user's check-ins within [from, to).
func (r *AttendanceRepository) CountInRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance WHERE user_id = $1 AND check_in >= $2 AND check_in < $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, from, to); err != nil {
		return 0, fmt.Errorf("count attendance in range: %w", err)
	}
	return count, nil
}

// CheckInsSince returns the check-in timestamps for a user since the cutoff,
// newest first. Feeds the streak walk.
func (r *AttendanceRepository) CheckInsSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	const query = `SELECT check_in FROM attendance WHERE user_id = $1 AND check_in >= $2 ORDER BY check_in DESC`
	var checkIns []time.Time
	if err := r.db.SelectContext(ctx, &checkIns, query, userID, since); err != nil {
		return nil, fmt.Errorf("list check-ins since: %w", err)
	}
	return checkIns, nil
}

// CloseAllOpen stamps every open record with the given check-out time and
// returns how many were closed. Used by the auto-checkout worker.
func (r *AttendanceRepository) CloseAllOpen(ctx context.Context, checkOut time.Time) (int64, error) {
	const query = `UPDATE attendance SET check_out = $1 WHERE check_out IS NULL`
	res, err := r.db.ExecContext(ctx, query, checkOut)
	if err != nil {
		return 0, fmt.Errorf("close open attendance records: %w", err)
	}
	closed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close open attendance records: %w", err)
	}
	return closed, nil
}
