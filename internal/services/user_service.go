package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// RegisterUser creates a new user with a hashed password. Role defaults
// to "user" and is_active to true. A manager creating a user becomes
// that user's manager and may only create plain users.
func (s *userService) RegisterUser(actor Actor, input RegisterUserInput) (*models.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}

	if actor.IsManager() && role != models.RoleUser {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, `Managers can only create users with "user" role`)
	}

	managerID := input.ManagerID
	if actor.IsManager() {
		id := actor.UserID
		managerID = &id
	}

	if err := s.checkManagerAssignment(role, managerID, 0); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", strings.ToLower(input.Email)).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	user := &models.User{
		Name:      input.Name,
		Email:     strings.ToLower(input.Email),
		Password:  string(hashedPassword),
		Role:      role,
		ManagerID: managerID,
		IsActive:  isActive,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// checkManagerAssignment enforces the manager-hierarchy invariants:
// admins have no manager, nobody manages themselves, and a manager is
// never supervised by another manager.
func (s *userService) checkManagerAssignment(role models.Role, managerID *uint, userID uint) error {
	if managerID == nil {
		return nil
	}

	if role == models.RoleAdmin {
		return apperrors.ErrAdminHasManager
	}

	if userID != 0 && *managerID == userID {
		return apperrors.ErrSelfManager
	}

	var manager models.User
	if err := s.db.First(&manager, *managerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.WithMessage(apperrors.ErrUserNotFound, "Manager not found")
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if role == models.RoleManager && manager.IsManager() {
		return apperrors.ErrManagerOfManager
	}

	return nil
}

// GetUsers retrieves a paginated list of users, optionally limited to
// active accounts.
func (s *userService) GetUsers(activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	filter := func(db *gorm.DB) *gorm.DB {
		if activeOnly {
			return db.Where("is_active = ?", true)
		}
		return db
	}

	var totalItems int64
	if err := s.db.Model(&models.User{}).Scopes(filter).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	if err := s.db.Scopes(filter, pagination.Paginate(page)).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetUsersByRole retrieves all users with the given role.
func (s *userService) GetUsersByRole(role models.Role) ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("role = ?", role).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return users, nil
}

// GetUsersByManager retrieves the direct reports of a manager.
func (s *userService) GetUsersByManager(managerID uint) ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("manager_id = ?", managerID).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return users, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// UpdateUser applies a partial update to a user, enforcing the
// manager-hierarchy invariants when the manager link changes.
func (s *userService) UpdateUser(userID uint, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if input.Name != nil && *input.Name != "" {
		updates["name"] = *input.Name
	}

	if input.Email != nil && *input.Email != "" {
		email := strings.ToLower(*input.Email)
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.ErrDuplicateEmail
		}
		updates["email"] = email
	}

	if input.ClearManager {
		updates["manager_id"] = nil
	} else if input.ManagerID != nil {
		if err := s.checkManagerAssignment(user.Role, input.ManagerID, userID); err != nil {
			return nil, err
		}
		updates["manager_id"] = *input.ManagerID
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return user, nil
}

// DeleteUser removes a user permanently.
func (s *userService) DeleteUser(userID uint) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(user).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// UpdateUserStatus activates or deactivates a user. Actors cannot
// deactivate themselves.
func (s *userService) UpdateUserStatus(actor Actor, userID uint, isActive bool) error {
	if userID == actor.UserID && !isActive {
		return apperrors.ErrSelfDeactivate
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"is_active": isActive}
	if !isActive {
		// Deactivation revokes any live session immediately.
		updates["session_token_hash"] = ""
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ChangePassword replaces a user's password with a fresh bcrypt hash.
func (s *userService) ChangePassword(userID uint, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(user).Update("password", string(hashedPassword)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AttemptLogin verifies credentials and enforces the failed-attempt
// lockout. Locked accounts are rejected with a rate-limit error until
// the lockout window passes.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		return nil, apperrors.ErrRateLimited
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		s.recordFailedLogin(user)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.db.Model(user).Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"locked_until":          nil,
		}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return user, nil
}

func (s *userService) recordFailedLogin(user *models.User) {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]interface{}{"failed_login_attempts": attempts}
	if attempts >= maxFailedLogins {
		lockedUntil := time.Now().Add(lockoutDuration)
		updates["locked_until"] = lockedUntil
		updates["failed_login_attempts"] = 0
	}
	// Best effort: a failed bookkeeping write must not mask the
	// credential failure returned to the caller.
	s.db.Model(user).Updates(updates)
}

// StoreSessionTokenHash records the hash of the active bearer token.
func (s *userService) StoreSessionTokenHash(userID uint, tokenHash string) error {
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("session_token_hash", tokenHash).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ClearSession revokes the user's active bearer token.
func (s *userService) ClearSession(userID uint) error {
	return s.StoreSessionTokenHash(userID, "")
}

// IsSessionValid reports whether the token hash matches the user's
// recorded session.
func (s *userService) IsSessionValid(userID uint, tokenHash string) bool {
	var user models.User
	if err := s.db.Select("session_token_hash").First(&user, userID).Error; err != nil {
		return false
	}
	return user.SessionTokenHash != "" && user.SessionTokenHash == tokenHash
}
