package contacts

import (
	"context"
	"errors"
	"time"
)

// Relation is a directed "I added you" record. It is not required to be
// mutual; removal deletes the record and a later add succeeds again.
type Relation struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrSelfAdd      = errors.New("cannot add yourself as a contact")
	ErrAlreadyAdded = errors.New("contact already added")
	ErrNotFound     = errors.New("contact not found")
)

// Store is the persistence boundary for contact relations. Insert must be
// atomic per (ownerID, contactEmail): concurrent duplicate adds yield
// exactly one success and ErrAlreadyAdded for the rest.
type Store interface {
	Insert(ctx context.Context, ownerID, contactEmail string) (Relation, error)
	ListEmails(ctx context.Context, ownerID string) ([]string, error)
	Delete(ctx context.Context, ownerID, contactEmail string) error
}
