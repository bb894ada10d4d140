package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"dialdesk/internal/errors"
	"dialdesk/internal/model"
)

// bindAndValidate decodes the JSON body into req and validates it,
// itemizing per-field messages into the standard error envelope.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}

	if err := c.Validate(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			fields := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields[fe.Field()] = validationMessage(fe)
			}
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error:  "validation failed",
				Code:   "VALIDATION_ERROR",
				Fields: fields,
			})
		}
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}

	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in E.164 format"
	case "numeric":
		return "must contain digits only"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// fail maps a service error onto the standard error envelope.
func fail(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// currentUser returns the identity the auth middleware resolved for this
// request, or nil on public routes.
func currentUser(c echo.Context) *model.UserIdentity {
	identity, _ := c.Get("user").(*model.UserIdentity)
	return identity
}

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}

// parseID reads the :id route param as an unsigned integer.
func parseID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid id",
			Code:  "INVALID_ID",
		})
	}
	return uint(id), nil
}
