package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/library-portal-api/internal/models"
	appErrors "github.com/openshelf/library-portal-api/pkg/errors"
)

type accountUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type accountProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, id string) error
	ListStudents(ctx context.Context, search string, page, pageSize int) ([]models.Profile, int, error)
}

type accountTimeSlots interface {
	Assign(ctx context.Context, userID string, reqs []models.TimeSlotRequest) ([]models.TimeSlot, error)
	ListForUser(ctx context.Context, userID string) ([]models.TimeSlot, error)
}

// AccountService covers the admin-side student roster: provisioning, listing
// and removal. Deletion removes the auth identity first; dependent rows are
// cleaned up best-effort afterwards.
type AccountService struct {
	users     accountUserRepository
	profiles  accountProfileRepository
	timeSlots accountTimeSlots
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(users accountUserRepository, profiles accountProfileRepository, timeSlots accountTimeSlots, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{users: users, profiles: profiles, timeSlots: timeSlots, validator: validate, logger: logger}
}

// CreateStudent provisions a student account, profile and optional slots.
func (s *AccountService) CreateStudent(ctx context.Context, adminID string, req models.CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	profile := &models.Profile{
		ID:             user.ID,
		FullName:       req.FullName,
		Email:          req.Email,
		AttendanceGoal: req.AttendanceGoal,
	}
	if req.Phone != "" {
		profile.Phone = &req.Phone
	}
	if req.StudentID != "" {
		profile.StudentID = &req.StudentID
	}
	if req.SeatNumber != "" {
		profile.SeatNumber = &req.SeatNumber
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create profile")
	}

	var slots []models.TimeSlot
	if len(req.TimeSlots) > 0 {
		slots, err = s.timeSlots.Assign(ctx, user.ID, req.TimeSlots)
		if err != nil {
			return nil, err
		}
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionAccountCreate,
		Resource:   "student",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"source":"admin"}`),
	}); err != nil {
		s.logger.Warn("failed to record account creation audit log", zap.Error(err))
	}

	return &models.StudentDetail{Profile: *profile, TimeSlots: slots}, nil
}

// ListStudents returns the student roster.
func (s *AccountService) ListStudents(ctx context.Context, search string, page, pageSize int) ([]models.Profile, int, error) {
	profiles, total, err := s.profiles.ListStudents(ctx, search, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return profiles, total, nil
}

// GetStudent returns one student with their assigned slots.
func (s *AccountService) GetStudent(ctx context.Context, userID string) (*models.StudentDetail, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	slots, err := s.timeSlots.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.StudentDetail{Profile: *profile, TimeSlots: slots}, nil
}

// UpdateStudent edits a student's profile on behalf of an admin.
func (s *AccountService) UpdateStudent(ctx context.Context, adminID, userID string, req models.UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	profile.FullName = req.FullName
	profile.Phone = req.Phone
	profile.StudentID = req.StudentID
	profile.SeatNumber = req.SeatNumber
	if req.AttendanceGoal != nil {
		profile.AttendanceGoal = *req.AttendanceGoal
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	slots, err := s.timeSlots.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionAccountUpdate,
		Resource:   "student",
		ResourceID: &userID,
	}); err != nil {
		s.logger.Warn("failed to record account update audit log", zap.Error(err))
	}

	return &models.StudentDetail{Profile: *profile, TimeSlots: slots}, nil
}

// DeleteStudent removes a student account. Attendance history is kept; the
// profile, slots and sessions are cleaned up best-effort.
func (s *AccountService) DeleteStudent(ctx context.Context, adminID, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "only student accounts can be removed here")
	}

	if err := s.users.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions for deleted student", zap.Error(err))
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	if err := s.profiles.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to delete profile for removed student", zap.Error(err))
	}
	if _, err := s.timeSlots.Assign(ctx, userID, nil); err != nil {
		s.logger.Warn("failed to clear slots for removed student", zap.Error(err))
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionAccountDelete,
		Resource:   "student",
		ResourceID: &userID,
	}); err != nil {
		s.logger.Warn("failed to record account deletion audit log", zap.Error(err))
	}
	return nil
}
