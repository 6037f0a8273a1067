package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/swifttalkhq/swifttalk/internal/db"
)

// PGStore is the PostgreSQL-backed user store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a user store over a pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, email, passwordHash string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, first_name, surname, username, created_at, updated_at`,
		email, passwordHash,
	)
	user, _, err := scanUser(row, false)
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return User{}, ErrEmailInUse
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (User, string, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, surname, username, created_at, updated_at, password_hash
		FROM users WHERE email = $1`,
		email,
	)
	user, hash, err := scanUser(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, "", ErrNotFound
		}
		return User{}, "", fmt.Errorf("get user by email: %w", err)
	}
	return user, hash, nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (User, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, surname, username, created_at, updated_at
		FROM users WHERE id = $1`,
		pgID,
	)
	user, _, err := scanUser(row, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (s *PGStore) UpdateProfile(ctx context.Context, id string, profile Profile) (User, error) {
	pgID, err := dbpkg.ParseUUID(id)
	if err != nil {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET first_name = $2, surname = $3, username = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, email, first_name, surname, username, created_at, updated_at`,
		pgID, toPgText(profile.FirstName), toPgText(profile.Surname), toPgText(profile.Username),
	)
	user, _, err := scanUser(row, false)
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row, withHash bool) (User, string, error) {
	var (
		id                        pgtype.UUID
		email                     string
		firstName, surname, uname pgtype.Text
		createdAt, updatedAt      pgtype.Timestamptz
		passwordHash              string
	)
	dest := []any{&id, &email, &firstName, &surname, &uname, &createdAt, &updatedAt}
	if withHash {
		dest = append(dest, &passwordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return User{}, "", err
	}
	return User{
		ID:        dbpkg.UUIDToString(id),
		Email:     email,
		FirstName: dbpkg.TextToString(firstName),
		Surname:   dbpkg.TextToString(surname),
		Username:  dbpkg.TextToString(uname),
		CreatedAt: dbpkg.TimeFromPg(createdAt),
		UpdatedAt: dbpkg.TimeFromPg(updatedAt),
	}, passwordHash, nil
}

func toPgText(value string) pgtype.Text {
	value = strings.TrimSpace(value)
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
