package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swifttalkhq/swifttalk/internal/auth"
	"github.com/swifttalkhq/swifttalk/internal/chat"
)

// ContactsHandler manages the caller's contact list.
type ContactsHandler struct {
	chatService *chat.Service
	logger      *slog.Logger
}

// NewContactsHandler creates a contacts handler.
func NewContactsHandler(log *slog.Logger, chatService *chat.Service) *ContactsHandler {
	return &ContactsHandler{
		chatService: chatService,
		logger:      log.With(slog.String("handler", "contacts")),
	}
}

// Register mounts the contact routes on the Echo instance.
func (h *ContactsHandler) Register(e *echo.Echo) {
	e.GET("/contacts", h.List)
	e.POST("/contacts", h.Add)
	e.DELETE("/contacts/:email", h.Remove)
}

// AddContactRequest is the body of POST /contacts.
type AddContactRequest struct {
	Email string `json:"email"`
}

// List returns the caller's contact emails.
func (h *ContactsHandler) List(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	emails, err := h.chatService.ListContacts(c.Request().Context(), identity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, emails)
}

// Add adds a registered user to the caller's contacts.
func (h *ContactsHandler) Add(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	var req AddContactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	relation, err := h.chatService.AddContact(c.Request().Context(), identity, req.Email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, relation)
}

// Remove deletes a contact from the caller's list.
func (h *ContactsHandler) Remove(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	email := c.Param("email")
	if err := h.chatService.RemoveContact(c.Request().Context(), identity, email); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
