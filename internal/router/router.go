package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"dialdesk/internal/errors"
	"dialdesk/internal/handler"
	"dialdesk/internal/model"
	"dialdesk/internal/service"
)

// Register wires routes and middleware. Every secured route carries the
// session-validating JWT middleware; role-restricted routes stack a role
// guard on top.
func Register(
	e *echo.Echo,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	telephonyHandler *handler.TelephonyHandler,
	callHandler *handler.CallHandler,
	contactHandler *handler.ContactHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	// The desk dashboard is served from its own origin in development.
	e.Use(middleware.CORS())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/create-admin", authHandler.CreateAdmin)
	api.POST("/telephony/voice", telephonyHandler.VoiceWebhook)

	// Secured routes. The token is not trusted by itself: every request
	// revalidates the backing session row, so revocation is immediate.
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return authService.Validate(c.Request().Context(), auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: errors.ErrInvalidToken.Error(),
				Code:  "INVALID_TOKEN",
			})
		},
	}))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)

	// Directory routes
	secured.GET("/users", userHandler.List, RequireRoles(model.RoleAdmin, model.RoleManager))
	secured.GET("/users/:id", userHandler.Get, RequireRoles(model.RoleAdmin, model.RoleManager))
	secured.POST("/users", userHandler.Create, RequireRoles(model.RoleAdmin))
	secured.PUT("/users/:id", userHandler.Update, RequireRoles(model.RoleAdmin))
	secured.DELETE("/users/:id", userHandler.Delete, RequireRoles(model.RoleAdmin))

	// Presence is self-service; the handler enforces ownership.
	secured.PUT("/users/:id/call-status", callHandler.UpdateCallStatus)

	// Telephony routes
	secured.GET("/telephony/credentials", telephonyHandler.GetCredentials, RequireRoles(model.RoleAdmin))
	secured.POST("/telephony/credentials", telephonyHandler.SaveCredentials, RequireRoles(model.RoleAdmin))
	secured.POST("/telephony/token", telephonyHandler.IssueToken)

	// Contact routes
	secured.GET("/contacts", contactHandler.List)
	secured.GET("/contacts/:id", contactHandler.Get)
	secured.POST("/contacts", contactHandler.Create)
	secured.PUT("/contacts/:id", contactHandler.Update)
	secured.DELETE("/contacts/:id", contactHandler.Delete)

	// Call history routes
	secured.GET("/calls", callHandler.History, RequireRoles(model.RoleAdmin, model.RoleManager))
	secured.GET("/calls/active", callHandler.ActiveCalls, RequireRoles(model.RoleAdmin, model.RoleManager))
	secured.GET("/calls/users/:id", callHandler.UserHistory, RequireRoles(model.RoleAdmin, model.RoleManager))
}

// RequireRoles allows only callers holding one of the given roles.
func RequireRoles(roles ...model.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := c.Get("user").(*model.UserIdentity)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "authentication required",
					Code:  "UNAUTHORIZED",
				})
			}
			for _, role := range roles {
				if identity.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: errors.ErrForbidden.Error(),
				Code:  "FORBIDDEN",
			})
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
