package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/swifttalkhq/swifttalk/internal/auth"
	"github.com/swifttalkhq/swifttalk/internal/ratelimit"
	"github.com/swifttalkhq/swifttalk/internal/users"
)

// AuthHandler serves sign-up and login and issues JWTs.
type AuthHandler struct {
	userService *users.Service
	jwtSecret   string
	expiresIn   time.Duration
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// CredentialsRequest is the body for POST /auth/signup and /auth/login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the success body for both credential endpoints.
type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   string     `json:"expires_at"`
	User        users.User `json:"user"`
}

// NewAuthHandler creates an auth handler with the user service and JWT config.
func NewAuthHandler(log *slog.Logger, userService *users.Service, jwtSecret string, expiresIn time.Duration, limiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtSecret:   jwtSecret,
		expiresIn:   expiresIn,
		limiter:     limiter,
		logger:      log.With(slog.String("handler", "auth")),
	}
}

// Register mounts POST /auth/signup and POST /auth/login on the Echo instance.
func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/signup", h.SignUp)
	e.POST("/auth/login", h.Login)
}

// SignUp registers an account and returns a token for the new identity.
func (h *AuthHandler) SignUp(c echo.Context) error {
	req, err := h.bindCredentials(c)
	if err != nil {
		return err
	}
	user, err := h.userService.SignUp(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return h.respondWithToken(c, user)
}

// Login validates credentials and returns a token.
func (h *AuthHandler) Login(c echo.Context) error {
	req, err := h.bindCredentials(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return h.respondWithToken(c, user)
}

func (h *AuthHandler) bindCredentials(c echo.Context) (CredentialsRequest, error) {
	var req CredentialsRequest
	if h.userService == nil {
		return req, echo.NewHTTPError(http.StatusInternalServerError, "user service not configured")
	}
	if strings.TrimSpace(h.jwtSecret) == "" {
		return req, echo.NewHTTPError(http.StatusInternalServerError, "jwt secret not configured")
	}
	if !h.limiter.Allow(c.RealIP(), time.Now()) {
		return req, echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts")
	}
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	return req, nil
}

func (h *AuthHandler) respondWithToken(c echo.Context, user users.User) error {
	token, expiresAt, err := auth.GenerateToken(user.ID, user.Email, h.jwtSecret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User:        user,
	})
}
