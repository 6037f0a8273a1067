// Package auth issues and verifies JWT credentials and resolves the caller identity.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when no verified identity is attached to the request.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the caller's verified identity resolved from the bearer token.
// Operations that need the caller receive it explicitly; there is no ambient
// process-wide current user.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the JWT payload: subject is the user ID, Email the verified address.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for the user, valid for expiresIn.
func GenerateToken(userID, email, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret is required")
	}
	now := time.Now()
	expiresAt := now.Add(expiresIn)
	claims := Claims{
		Email: strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// JWTMiddleware verifies bearer tokens on every route the skipper does not exempt.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:    skipper,
		SigningKey: []byte(secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
	})
}

// IdentityFromContext extracts the verified caller identity set by JWTMiddleware.
func IdentityFromContext(c echo.Context) (Identity, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error())
	}
	userID := strings.TrimSpace(claims.Subject)
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if userID == "" || email == "" {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error())
	}
	return Identity{UserID: userID, Email: email}, nil
}
