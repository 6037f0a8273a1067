package users

import (
	"context"
	"errors"
	"time"
)

// User is a registered account. ID is assigned at sign-up and immutable;
// profile fields are mutable only by the owning user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	Surname   string    `json:"surname,omitempty"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile carries the mutable display fields set after sign-up.
type Profile struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Username  string `json:"username"`
}

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailInUse         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrNotFound           = errors.New("user not found")
)

// Store is the persistence boundary for user records.
// Create and UpdateProfile must report ErrEmailInUse / ErrUsernameTaken on
// uniqueness conflicts so concurrent duplicates yield exactly one success.
type Store interface {
	Create(ctx context.Context, email, passwordHash string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, string, error)
	GetByID(ctx context.Context, id string) (User, error)
	UpdateProfile(ctx context.Context, id string, profile Profile) (User, error)
}
