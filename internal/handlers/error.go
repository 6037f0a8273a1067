// Package handlers provides the HTTP API handlers for the messaging server.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swifttalkhq/swifttalk/internal/contacts"
	"github.com/swifttalkhq/swifttalk/internal/conversation"
	"github.com/swifttalkhq/swifttalk/internal/message"
	"github.com/swifttalkhq/swifttalk/internal/users"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps service sentinels onto HTTP statuses. Validation failures
// are 400, conflicts 409, missing records 404, and participation denials a
// generic 403 that does not reveal whether the conversation exists.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, users.ErrInvalidEmail),
		errors.Is(err, users.ErrWeakPassword),
		errors.Is(err, users.ErrInvalidProfile),
		errors.Is(err, message.ErrEmptyMessage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrEmailInUse),
		errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, contacts.ErrAlreadyAdded),
		errors.Is(err, contacts.ErrSelfAdd):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, contacts.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, conversation.ErrNotParticipant):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
