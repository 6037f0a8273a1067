package message

import (
	"context"
	"errors"
	"time"
)

// Message is one immutable entry in a conversation's append-only log.
// ID and CreatedAt are assigned by the store at write time, never by the
// client, so ordering is immune to client clock skew.
type Message struct {
	ID              string    `json:"id"`
	ConversationKey string    `json:"conversation_key"`
	SenderEmail     string    `json:"sender_email"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"created_at"`
}

// ErrEmptyMessage is returned when a message body trims to nothing.
var ErrEmptyMessage = errors.New("message body is empty")

// Log is the persistence boundary for the message log. Records are only
// appended; Insert must leave no record behind on error.
type Log interface {
	Insert(ctx context.Context, msg Message) error
	ListAsc(ctx context.Context, key string) ([]Message, error)
	LastCreatedAt(ctx context.Context, key string) (time.Time, error)
}
