package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/swifttalkhq/swifttalk/internal/db"
)

// PGLog is the PostgreSQL-backed message log.
type PGLog struct {
	pool *pgxpool.Pool
}

// NewPGLog creates a message log over a pgx pool.
func NewPGLog(pool *pgxpool.Pool) *PGLog {
	return &PGLog{pool: pool}
}

func (l *PGLog) Insert(ctx context.Context, msg Message) error {
	pgID, err := dbpkg.ParseUUID(msg.ID)
	if err != nil {
		return fmt.Errorf("invalid message id: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_key, sender_email, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		pgID, msg.ConversationKey, msg.SenderEmail, msg.Body,
		pgtype.Timestamptz{Time: msg.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (l *PGLog) ListAsc(ctx context.Context, key string) ([]Message, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, conversation_key, sender_email, body, created_at
		FROM messages
		WHERE conversation_key = $1
		ORDER BY created_at`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var (
			id        pgtype.UUID
			createdAt pgtype.Timestamptz
			msg       Message
		)
		if err := rows.Scan(&id, &msg.ConversationKey, &msg.SenderEmail, &msg.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = dbpkg.UUIDToString(id)
		msg.CreatedAt = dbpkg.TimeFromPg(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (l *PGLog) LastCreatedAt(ctx context.Context, key string) (time.Time, error) {
	var createdAt pgtype.Timestamptz
	err := l.pool.QueryRow(ctx, `
		SELECT created_at FROM messages
		WHERE conversation_key = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		key,
	).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("last message timestamp: %w", err)
	}
	return dbpkg.TimeFromPg(createdAt), nil
}
