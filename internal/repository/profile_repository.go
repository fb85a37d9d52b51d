package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openshelf/library-portal-api/internal/models"
)

// ProfileRepository provides database access for portal profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID returns the profile owned by the given user.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, full_name, email, phone, student_id, seat_number, attendance_goal, created_at, updated_at FROM profiles WHERE id = $1 LIMIT 1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// Upsert inserts the profile or replaces its mutable fields. The account
// creation flow writes the profile separately from the auth identity, so the
// row may or may not exist yet.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.AttendanceGoal <= 0 {
		profile.AttendanceGoal = models.DefaultAttendanceGoal
	}

	const query = `INSERT INTO profiles (id, full_name, email, phone, student_id, seat_number, attendance_goal, created_at, updated_at)
        VALUES (:id, :full_name, :email, :phone, :student_id, :seat_number, :attendance_goal, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email, phone = EXCLUDED.phone,
        student_id = EXCLUDED.student_id, seat_number = EXCLUDED.seat_number, attendance_goal = EXCLUDED.attendance_goal, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Update changes the student-editable fields only.
func (r *ProfileRepository) Update(ctx context.Context, id string, req models.UpdateProfileRequest) error {
	sets := []string{"full_name = $2", "updated_at = $3"}
	args := []interface{}{id, req.FullName, time.Now().UTC()}

	if req.Phone != nil {
		sets = append(sets, fmt.Sprintf("phone = $%d", len(args)+1))
		args = append(args, *req.Phone)
	}
	if req.AttendanceGoal != nil {
		sets = append(sets, fmt.Sprintf("attendance_goal = $%d", len(args)+1))
		args = append(args, *req.AttendanceGoal)
	}

	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Delete removes a profile row.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM profiles WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// IdentityMap returns display identities keyed by user id for report joins.
func (r *ProfileRepository) IdentityMap(ctx context.Context, userIDs []string) (map[string]models.ProfileIdentity, error) {
	identities := make(map[string]models.ProfileIdentity, len(userIDs))
	if len(userIDs) == 0 {
		return identities, nil
	}

	query, args, err := sqlx.In(`SELECT id, full_name, student_id FROM profiles WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("build identity query: %w", err)
	}
	query = r.db.Rebind(query)

	rows := []struct {
		ID        string  `db:"id"`
		FullName  string  `db:"full_name"`
		StudentID *string `db:"student_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}

	for _, row := range rows {
		identity := models.ProfileIdentity{FullName: row.FullName}
		if row.StudentID != nil {
			identity.StudentID = *row.StudentID
		}
		identities[row.ID] = identity
	}
	return identities, nil
}

// ListStudents returns student profiles matching the search with total count.
func (r *ProfileRepository) ListStudents(ctx context.Context, search string, page, pageSize int) ([]models.Profile, int, error) {
	baseQuery := `FROM profiles p JOIN users u ON u.id = p.id WHERE u.role = $1`
	args := []interface{}{models.RoleStudent}

	if search != "" {
		baseQuery += fmt.Sprintf(" AND (LOWER(p.full_name) LIKE $%d OR LOWER(p.email) LIKE $%d OR LOWER(COALESCE(p.student_id, '')) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT p.id, p.full_name, p.email, p.phone, p.student_id, p.seat_number, p.attendance_goal, p.created_at, p.updated_at %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return profiles, total, nil
}
