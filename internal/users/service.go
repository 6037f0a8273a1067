// Package users manages account sign-up, login, and profile lookup.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/swifttalkhq/swifttalk/internal/conversation"
)

const minPasswordLength = 6

// Service implements account operations over a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a user service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "users")),
	}
}

// SignUp registers a new account. The email is stored lowercased so
// uniqueness is case-insensitive.
func (s *Service) SignUp(ctx context.Context, email, password string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	email = conversation.NormalizeEmail(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		// Rejects display-name forms like "Alice <alice@x.com>"; only the
		// bare address is a valid account email.
		return User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.Create(ctx, email, string(hashed))
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user signed up", slog.String("user_id", user.ID))
	return user, nil
}

// Login validates credentials. Unknown email and wrong password are not
// distinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	email = conversation.NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	user, passwordHash, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// CompleteProfile sets the display fields chosen after sign-up. Username
// uniqueness is enforced by the store; concurrent claims of the same
// username yield exactly one success.
func (s *Service) CompleteProfile(ctx context.Context, userID string, profile Profile) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	profile.FirstName = strings.TrimSpace(profile.FirstName)
	profile.Surname = strings.TrimSpace(profile.Surname)
	profile.Username = strings.TrimSpace(profile.Username)
	if profile.Username == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidProfile)
	}
	return s.store.UpdateProfile(ctx, userID, profile)
}

// GetByEmail looks up a registered user by exact email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	user, _, err := s.store.GetByEmail(ctx, conversation.NormalizeEmail(email))
	return user, err
}

// Get returns the user with the given ID.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	if s.store == nil {
		return User{}, fmt.Errorf("user store not configured")
	}
	return s.store.GetByID(ctx, userID)
}
