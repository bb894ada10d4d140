package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"dialdesk/internal/model"
	"dialdesk/internal/service"
)

// UserHandler handles directory endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest represents a user creation request.
type CreateUserRequest struct {
	FullName  string         `json:"full_name" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required,min=8"`
	Phone     string         `json:"phone" validate:"omitempty,e164"`
	Extension string         `json:"extension" validate:"required,numeric"`
	Role      model.UserRole `json:"role" validate:"omitempty,oneof=admin manager user"`
}

// UpdateUserRequest represents a partial user update. Absent fields are
// left unchanged.
type UpdateUserRequest struct {
	FullName  *string         `json:"full_name" validate:"omitempty,min=1"`
	Email     *string         `json:"email" validate:"omitempty,email"`
	Password  *string         `json:"password" validate:"omitempty,min=8"`
	Phone     *string         `json:"phone" validate:"omitempty,e164"`
	Extension *string         `json:"extension" validate:"omitempty,numeric"`
	Role      *model.UserRole `json:"role" validate:"omitempty,oneof=admin manager user"`
	IsActive  *bool           `json:"is_active"`
}

// List godoc
// @Summary List users with their call presence
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get godoc
// @Summary Get one user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Create godoc
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Create(c.Request().Context(), service.CreateUserInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Extension: req.Extension,
		Role:      req.Role,
	})
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusCreated, user)
}

// Update godoc
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.Update(c.Request().Context(), id, service.UpdateUserInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Extension: req.Extension,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, user)
}

// Delete godoc
// @Summary Soft-delete a user and revoke their sessions
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.userService.Delete(c.Request().Context(), id, currentUser(c)); err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}
