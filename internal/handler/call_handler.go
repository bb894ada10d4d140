package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"dialdesk/internal/errors"
	"dialdesk/internal/model"
	"dialdesk/internal/service"
)

// CallHandler handles call presence and call history endpoints.
type CallHandler struct {
	callService service.CallService
}

// NewCallHandler creates a new call handler.
func NewCallHandler(callService service.CallService) *CallHandler {
	return &CallHandler{callService: callService}
}

// UpdateCallStatusRequest toggles a user's call presence. When on_call is
// true the call fields describe the call being answered or placed.
type UpdateCallStatusRequest struct {
	OnCall       bool                `json:"on_call"`
	CallSID      string              `json:"call_sid" validate:"omitempty,max=64"`
	CallerNumber string              `json:"caller_number" validate:"omitempty,max=32"`
	Direction    model.CallDirection `json:"direction" validate:"omitempty,oneof=inbound outbound"`
	StartedAt    *time.Time          `json:"started_at"`
}

// UpdateCallStatus godoc
// @Summary Set or clear the caller's own call presence
// @Tags calls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID, must be the caller's own"
// @Param request body UpdateCallStatusRequest true "Call status"
// @Success 200 {object} model.CallPresence
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users/{id}/call-status [put]
func (h *CallHandler) UpdateCallStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	// Devices report their own calls; nobody flips presence for others.
	if identity := currentUser(c); identity == nil || identity.ID != id {
		return fail(errors.ErrForbidden)
	}

	var req UpdateCallStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	if !req.OnCall {
		if err := h.callService.EndCall(ctx, id); err != nil {
			return fail(err)
		}
		return c.JSON(http.StatusOK, map[string]string{
			"message": "call ended",
		})
	}

	if req.CallSID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: map[string]string{"CallSID": "is required when on_call is true"},
		})
	}

	input := service.StartCallInput{
		CallSID:      req.CallSID,
		CallerNumber: req.CallerNumber,
		Direction:    req.Direction,
	}
	if req.StartedAt != nil {
		input.StartedAt = *req.StartedAt
	}

	presence, err := h.callService.StartCall(ctx, id, input)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, presence)
}

// ActiveCalls godoc
// @Summary List users currently on a call
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.CallPresence
// @Failure 403 {object} errors.ErrorResponse
// @Router /calls/active [get]
func (h *CallHandler) ActiveCalls(c echo.Context) error {
	active, err := h.callService.ActiveCalls(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, active)
}

// History godoc
// @Summary List finished calls, newest first
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max records, default 50, cap 200"
// @Success 200 {array} model.CallLog
// @Failure 403 {object} errors.ErrorResponse
// @Router /calls [get]
func (h *CallHandler) History(c echo.Context) error {
	entries, err := h.callService.History(c.Request().Context(), queryLimit(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// UserHistory godoc
// @Summary List one user's finished calls, newest first
// @Tags calls
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param limit query int false "Max records, default 50, cap 200"
// @Success 200 {array} model.CallLog
// @Failure 403 {object} errors.ErrorResponse
// @Router /calls/users/{id} [get]
func (h *CallHandler) UserHistory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	entries, err := h.callService.HistoryByUser(c.Request().Context(), id, queryLimit(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func queryLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return limit
}
