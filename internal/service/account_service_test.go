package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type mockAccountUsers struct {
	byEmail   *models.User
	byID      *models.User
	created   *models.User
	deletedID string
	revoked   bool
	auditLogs []*models.AuditLog
}

func (m *mockAccountUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.byEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmail, nil
}

func (m *mockAccountUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockAccountUsers) Create(ctx context.Context, user *models.User) error {
	m.created = user
	return nil
}

func (m *mockAccountUsers) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockAccountUsers) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = true
	return nil
}

func (m *mockAccountUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockAccountProfiles struct {
	profile   *models.Profile
	upserted  *models.Profile
	deletedID string
}

func (m *mockAccountProfiles) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if m.profile == nil {
		return nil, sql.ErrNoRows
	}
	return m.profile, nil
}

func (m *mockAccountProfiles) Upsert(ctx context.Context, profile *models.Profile) error {
	m.upserted = profile
	return nil
}

func (m *mockAccountProfiles) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockAccountProfiles) ListStudents(ctx context.Context, search string, page, pageSize int) ([]models.Profile, int, error) {
	if m.profile == nil {
		return nil, 0, nil
	}
	return []models.Profile{*m.profile}, 1, nil
}

type mockAccountSlots struct {
	assigned map[string][]models.TimeSlotRequest
	slots    []models.TimeSlot
}

func (m *mockAccountSlots) Assign(ctx context.Context, userID string, reqs []models.TimeSlotRequest) ([]models.TimeSlot, error) {
	if m.assigned == nil {
		m.assigned = make(map[string][]models.TimeSlotRequest)
	}
	m.assigned[userID] = reqs
	return m.slots, nil
}

func (m *mockAccountSlots) ListForUser(ctx context.Context, userID string) ([]models.TimeSlot, error) {
	return m.slots, nil
}

func newTestAccountService(users *mockAccountUsers, profiles *mockAccountProfiles, slots *mockAccountSlots) *AccountService {
	return NewAccountService(users, profiles, slots, validator.New(), zap.NewNop())
}

func TestAccountCreateStudent(t *testing.T) {
	users := &mockAccountUsers{}
	profiles := &mockAccountProfiles{}
	slots := &mockAccountSlots{}
	svc := newTestAccountService(users, profiles, slots)

	detail, err := svc.CreateStudent(context.Background(), "admin-1", models.CreateStudentRequest{
		Email:     "student@example.com",
		Password:  "password123",
		FullName:  "New Student",
		StudentID: "S-200",
		TimeSlots: []models.TimeSlotRequest{{StartTime: "09:00", EndTime: "11:00"}},
	})
	require.NoError(t, err)
	require.NotNil(t, users.created)
	assert.Equal(t, models.RoleStudent, users.created.Role)
	assert.Equal(t, users.created.ID, profiles.upserted.ID)
	assert.Len(t, slots.assigned[users.created.ID], 1)
	assert.Equal(t, "New Student", detail.Profile.FullName)
}

func TestAccountCreateStudentDuplicateEmail(t *testing.T) {
	users := &mockAccountUsers{byEmail: &models.User{ID: "existing"}}
	svc := newTestAccountService(users, &mockAccountProfiles{}, &mockAccountSlots{})

	_, err := svc.CreateStudent(context.Background(), "admin-1", models.CreateStudentRequest{
		Email:    "taken@example.com",
		Password: "password123",
		FullName: "Someone",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAccountUpdateStudent(t *testing.T) {
	profiles := &mockAccountProfiles{profile: &models.Profile{ID: "u1", FullName: "Old Name", AttendanceGoal: 15}}
	users := &mockAccountUsers{}
	svc := newTestAccountService(users, profiles, &mockAccountSlots{})

	goal := 25
	seat := "B-12"
	detail, err := svc.UpdateStudent(context.Background(), "admin-1", "u1", models.UpdateStudentRequest{
		FullName:       "New Name",
		SeatNumber:     &seat,
		AttendanceGoal: &goal,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", detail.Profile.FullName)
	assert.Equal(t, 25, detail.Profile.AttendanceGoal)
	require.NotNil(t, profiles.upserted)
	assert.Equal(t, &seat, profiles.upserted.SeatNumber)
	assert.Len(t, users.auditLogs, 1)
}

func TestAccountUpdateStudentNotFound(t *testing.T) {
	svc := newTestAccountService(&mockAccountUsers{}, &mockAccountProfiles{}, &mockAccountSlots{})

	_, err := svc.UpdateStudent(context.Background(), "admin-1", "missing", models.UpdateStudentRequest{FullName: "X"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAccountDeleteStudent(t *testing.T) {
	users := &mockAccountUsers{byID: &models.User{ID: "u1", Role: models.RoleStudent}}
	profiles := &mockAccountProfiles{}
	slots := &mockAccountSlots{}
	svc := newTestAccountService(users, profiles, slots)

	require.NoError(t, svc.DeleteStudent(context.Background(), "admin-1", "u1"))
	assert.Equal(t, "u1", users.deletedID)
	assert.Equal(t, "u1", profiles.deletedID)
	assert.True(t, users.revoked)
	assert.Empty(t, slots.assigned["u1"])
}

func TestAccountDeleteStudentRejectsAdmins(t *testing.T) {
	users := &mockAccountUsers{byID: &models.User{ID: "u1", Role: models.RoleAdmin}}
	svc := newTestAccountService(users, &mockAccountProfiles{}, &mockAccountSlots{})

	err := svc.DeleteStudent(context.Background(), "admin-1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.deletedID)
}
