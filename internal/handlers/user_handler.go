package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

// UserHandler handles user management requests
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// RegisterUserRequest represents the payload for creating a user
type RegisterUserRequest struct {
	Name      string `json:"name" binding:"required,max=255"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	Role      string `json:"role" binding:"omitempty,role"`
	ManagerID *uint  `json:"manager_id"`
	IsActive  *bool  `json:"is_active"`
}

// UpdateUserRequest represents the payload for a partial user update
type UpdateUserRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=255"`
	Email        *string `json:"email" binding:"omitempty,email,max=255"`
	ManagerID    *uint   `json:"manager_id"`
	ClearManager bool    `json:"clear_manager"`
}

// UpdateStatusRequest represents the payload for toggling user status
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ChangePasswordRequest represents the payload for a password change
type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		ManagerID: user.ManagerID,
		IsActive:  user.IsActive,
	}
}

func toUserResponses(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, toUserResponse(&users[i]))
	}
	return responses
}

// canAccessUser reports whether the actor may view or manage the
// target user: admins may, users may access themselves, and managers
// may access their direct reports.
func canAccessUser(actor services.Actor, target *models.User) bool {
	if actor.IsAdmin() || actor.UserID == target.ID {
		return true
	}
	return actor.IsManager() && target.ManagerID != nil && *target.ManagerID == actor.UserID
}

// RegisterUser creates a new user account.
// @Summary     Register a user
// @Description Create a new user account. Managers may only create plain users, who become their reports.
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RegisterUserRequest true "User details"
// @Success     201 {object} UserResponse "User created"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     409 {object} ErrorResponse "Duplicate email"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /users [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	user, err := h.userService.RegisterUser(actor, services.RegisterUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.Role(req.Role),
		ManagerID: req.ManagerID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "user.create", "user", user.ID, c.ClientIP(), map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

// GetUsers lists users. Admins see everyone, managers their reports.
// @Summary     List users
// @Description List users. Admins see all users, managers only their direct reports.
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       active query bool false "Only active users"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} map[string]interface{} "Users"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /users [get]
func (h *UserHandler) GetUsers(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if actor.IsManager() {
		users, err := h.userService.GetUsersByManager(actor.UserID)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": toUserResponses(users)})
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	activeOnly := c.Query("active") == "true"
	result, err := h.userService.GetUsers(activeOnly, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       toUserResponses(result.Data),
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total_items": result.TotalItems,
		"total_pages": result.TotalPages,
	})
}

// GetUsersByRole lists users holding a role.
// @Summary     List users by role
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       role path string true "Role" Enums(admin, manager, user)
// @Success     200 {object} map[string]interface{} "Users"
// @Failure     400 {object} ErrorResponse "Invalid role"
// @Router      /users/role/{role} [get]
func (h *UserHandler) GetUsersByRole(c *gin.Context) {
	role := models.Role(c.Param("role"))
	if role != models.RoleAdmin && role != models.RoleManager && role != models.RoleUser {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid role"))
		return
	}

	users, err := h.userService.GetUsersByRole(role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": toUserResponses(users)})
}

// GetUsersByManager lists a manager's direct reports.
// @Summary     List a manager's reports
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Manager ID"
// @Success     200 {object} map[string]interface{} "Users"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /users/manager/{id} [get]
func (h *UserHandler) GetUsersByManager(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	managerID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !actor.IsAdmin() && actor.UserID != managerID {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	users, err := h.userService.GetUsersByManager(managerID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": toUserResponses(users)})
}

// GetUser retrieves a single user.
// @Summary     Get user by ID
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     200 {object} UserResponse "User"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !canAccessUser(actor, user) {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// UpdateUser applies a partial update to a user.
// @Summary     Update a user
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Param       request body UpdateUserRequest true "Fields to update"
// @Success     200 {object} UserResponse "Updated user"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !canAccessUser(actor, user) {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	// Only admins may rewire the manager hierarchy.
	if !actor.IsAdmin() && (req.ManagerID != nil || req.ClearManager) {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	updated, err := h.userService.UpdateUser(userID, services.UpdateUserInput{
		Name:         req.Name,
		Email:        req.Email,
		ManagerID:    req.ManagerID,
		ClearManager: req.ClearManager,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "user.update", "user", userID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(updated)})
}

// DeleteUser permanently removes a user.
// @Summary     Delete a user
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.userService.DeleteUser(userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "user.delete", "user", userID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// UpdateUserStatus activates or deactivates a user.
// @Summary     Activate or deactivate a user
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Param       request body UpdateStatusRequest true "Desired status"
// @Success     200 {object} UserResponse "Updated user"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /users/{id}/status [patch]
func (h *UserHandler) UpdateUserStatus(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !actor.IsAdmin() && !(actor.IsManager() && user.ManagerID != nil && *user.ManagerID == actor.UserID) {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	if err := h.userService.UpdateUserStatus(actor, userID, *req.IsActive); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "user.status", "user", userID, c.ClientIP(), map[string]interface{}{
		"is_active": *req.IsActive,
	})

	updated, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(updated)})
}

// ChangePassword sets a new password for a user.
// @Summary     Change a user's password
// @Description Users change their own password. Admins and a user's manager may reset it.
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Param       request body ChangePasswordRequest true "New password"
// @Success     200 {object} map[string]string "Password changed"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /users/{id}/password [patch]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !canAccessUser(actor, user) {
		respondWithError(c, apperrors.ErrForbidden)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidation, err.Error()))
		return
	}

	if err := h.userService.ChangePassword(userID, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor.UserID, "user.password", "user", userID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
