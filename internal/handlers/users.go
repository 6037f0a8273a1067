package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/swifttalkhq/swifttalk/internal/auth"
	"github.com/swifttalkhq/swifttalk/internal/chat"
	"github.com/swifttalkhq/swifttalk/internal/users"
)

// UsersHandler serves the caller's profile and user search by email.
type UsersHandler struct {
	userService *users.Service
	chatService *chat.Service
	logger      *slog.Logger
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(log *slog.Logger, userService *users.Service, chatService *chat.Service) *UsersHandler {
	return &UsersHandler{
		userService: userService,
		chatService: chatService,
		logger:      log.With(slog.String("handler", "users")),
	}
}

// Register mounts the profile and search routes on the Echo instance.
func (h *UsersHandler) Register(e *echo.Echo) {
	e.GET("/me", h.Me)
	e.PUT("/me/profile", h.UpdateProfile)
	e.GET("/users", h.Search)
}

// Me returns the caller's own account.
func (h *UsersHandler) Me(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), identity.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile sets the caller's display fields. Only the owning user can
// change them; the identity comes from the verified token, never the body.
func (h *UsersHandler) UpdateProfile(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	var profile users.Profile
	if err := c.Bind(&profile); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.userService.CompleteProfile(c.Request().Context(), identity.UserID, profile)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Search finds a registered user by exact email (?email=).
func (h *UsersHandler) Search(c echo.Context) error {
	if _, err := auth.IdentityFromContext(c); err != nil {
		return err
	}
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email query parameter is required")
	}
	user, err := h.chatService.SearchUserByEmail(c.Request().Context(), email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
