package contacts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/swifttalkhq/swifttalk/internal/db"
)

// PGStore is the PostgreSQL-backed contact store. The
// (owner_id, contact_email) unique constraint makes Insert atomic.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a contact store over a pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, ownerID, contactEmail string) (Relation, error) {
	pgOwner, err := dbpkg.ParseUUID(ownerID)
	if err != nil {
		return Relation{}, fmt.Errorf("invalid owner id: %w", err)
	}
	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx, `
		INSERT INTO contacts (owner_id, contact_email)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		pgOwner, contactEmail,
	).Scan(&id, &createdAt)
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return Relation{}, ErrAlreadyAdded
		}
		return Relation{}, fmt.Errorf("insert contact: %w", err)
	}
	return Relation{
		ID:           dbpkg.UUIDToString(id),
		OwnerID:      ownerID,
		ContactEmail: contactEmail,
		CreatedAt:    dbpkg.TimeFromPg(createdAt),
	}, nil
}

func (s *PGStore) ListEmails(ctx context.Context, ownerID string) ([]string, error) {
	pgOwner, err := dbpkg.ParseUUID(ownerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT contact_email FROM contacts
		WHERE owner_id = $1
		ORDER BY created_at`,
		pgOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, ownerID, contactEmail string) error {
	pgOwner, err := dbpkg.ParseUUID(ownerID)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM contacts
		WHERE owner_id = $1 AND contact_email = $2`,
		pgOwner, contactEmail,
	)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
