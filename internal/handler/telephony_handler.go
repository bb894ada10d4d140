package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"dialdesk/internal/service"
)

// TelephonyHandler handles vendor credential and token endpoints plus the
// inbound voice webhook.
type TelephonyHandler struct {
	telephonyService service.TelephonyService
}

// NewTelephonyHandler creates a new telephony handler.
func NewTelephonyHandler(telephonyService service.TelephonyService) *TelephonyHandler {
	return &TelephonyHandler{telephonyService: telephonyService}
}

// SaveCredentialsRequest represents a full vendor credential set.
type SaveCredentialsRequest struct {
	AccountSID  string `json:"account_sid" validate:"required"`
	APIKey      string `json:"api_key" validate:"required"`
	APISecret   string `json:"api_secret" validate:"required"`
	AppSID      string `json:"app_sid" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

// AccessTokenRequest represents a client token request. Identity defaults
// to the caller's own extension.
type AccessTokenRequest struct {
	Identity string `json:"identity"`
}

// AccessTokenResponse carries a minted vendor access token.
type AccessTokenResponse struct {
	Token     string    `json:"token"`
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GetCredentials godoc
// @Summary Read the stored vendor credentials, secret masked
// @Tags telephony
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MaskedCredentials
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /telephony/credentials [get]
func (h *TelephonyHandler) GetCredentials(c echo.Context) error {
	creds, err := h.telephonyService.GetCredentials(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, creds)
}

// SaveCredentials godoc
// @Summary Replace the vendor credentials
// @Tags telephony
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveCredentialsRequest true "Credential set"
// @Success 200 {object} model.MaskedCredentials
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /telephony/credentials [post]
func (h *TelephonyHandler) SaveCredentials(c echo.Context) error {
	var req SaveCredentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	creds, err := h.telephonyService.SaveCredentials(c.Request().Context(), service.SaveCredentialsInput{
		AccountSID:  req.AccountSID,
		APIKey:      req.APIKey,
		APISecret:   req.APISecret,
		AppSID:      req.AppSID,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, creds)
}

// IssueToken godoc
// @Summary Mint a vendor access token for a softphone client
// @Tags telephony
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AccessTokenRequest false "Client identity override"
// @Success 200 {object} AccessTokenResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /telephony/token [post]
func (h *TelephonyHandler) IssueToken(c echo.Context) error {
	var req AccessTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	identity := req.Identity
	if identity == "" {
		identity = currentUser(c).Extension
	}

	token, expiresAt, err := h.telephonyService.IssueAccessToken(c.Request().Context(), identity)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusOK, AccessTokenResponse{
		Token:     token,
		Identity:  identity,
		ExpiresAt: expiresAt,
	})
}

// VoiceWebhook godoc
// @Summary Vendor voice callback answered with dial markup
// @Tags telephony
// @Accept x-www-form-urlencoded
// @Produce xml
// @Param From formData string false "Caller number"
// @Param To formData string false "Dialed number"
// @Param CallSid formData string false "Vendor call SID"
// @Success 200 {string} string "Dial markup"
// @Failure 404 {object} errors.ErrorResponse
// @Router /telephony/voice [post]
func (h *TelephonyHandler) VoiceWebhook(c echo.Context) error {
	from := c.FormValue("From")
	to := c.FormValue("To")
	callSID := c.FormValue("CallSid")

	markup, err := h.telephonyService.VoiceWebhook(c.Request().Context(), from, to, callSID)
	if err != nil {
		return fail(err)
	}

	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, []byte(markup))
}
