package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"dialdesk/internal/model"
	"dialdesk/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, userService service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token and the signed-in user.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// CreateAdminRequest represents the one-time admin bootstrap request.
type CreateAdminRequest struct {
	FullName  string `json:"full_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Phone     string `json:"phone" validate:"omitempty,e164"`
	Extension string `json:"extension" validate:"required,numeric"`
}

// Login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  user,
	})
}

// Logout godoc
// @Summary Sign out of every device
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), bearerToken(c)); err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me godoc
// @Summary Current user's profile with call presence
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	identity := currentUser(c)

	user, err := h.userService.Get(c.Request().Context(), identity.ID)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, user)
}

// CreateAdmin godoc
// @Summary Bootstrap the first admin account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CreateAdminRequest true "Admin account data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/create-admin [post]
func (h *AuthHandler) CreateAdmin(c echo.Context) error {
	var req CreateAdminRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.CreateAdmin(c.Request().Context(), service.CreateUserInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Extension: req.Extension,
	})
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusCreated, user)
}
