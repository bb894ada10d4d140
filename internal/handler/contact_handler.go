package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"dialdesk/internal/service"
)

// ContactHandler handles address-book endpoints.
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// ContactRequest represents a contact create or update.
type ContactRequest struct {
	Name        string `json:"name" validate:"required"`
	Company     string `json:"company"`
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	Notes       string `json:"notes"`
}

func (r *ContactRequest) toInput() service.ContactInput {
	return service.ContactInput{
		Name:        r.Name,
		Company:     r.Company,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Notes:       r.Notes,
	}
}

// List godoc
// @Summary List contacts
// @Tags contacts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Contact
// @Failure 401 {object} errors.ErrorResponse
// @Router /contacts [get]
func (h *ContactHandler) List(c echo.Context) error {
	contacts, err := h.contactService.List(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, contacts)
}

// Get godoc
// @Summary Get one contact
// @Tags contacts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contact ID"
// @Success 200 {object} model.Contact
// @Failure 404 {object} errors.ErrorResponse
// @Router /contacts/{id} [get]
func (h *ContactHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	contact, err := h.contactService.Get(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, contact)
}

// Create godoc
// @Summary Create a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ContactRequest true "Contact data"
// @Success 201 {object} model.Contact
// @Failure 400 {object} errors.ErrorResponse
// @Router /contacts [post]
func (h *ContactHandler) Create(c echo.Context) error {
	var req ContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	contact, err := h.contactService.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, contact)
}

// Update godoc
// @Summary Update a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contact ID"
// @Param request body ContactRequest true "Contact data"
// @Success 200 {object} model.Contact
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /contacts/{id} [put]
func (h *ContactHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req ContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	contact, err := h.contactService.Update(c.Request().Context(), id, req.toInput())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, contact)
}

// Delete godoc
// @Summary Delete a contact
// @Tags contacts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Contact ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Router /contacts/{id} [delete]
func (h *ContactHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.contactService.Delete(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "contact deleted",
	})
}
