// Package contacts manages directed contact relations between users.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/swifttalkhq/swifttalk/internal/conversation"
	"github.com/swifttalkhq/swifttalk/internal/users"
)

// UserLookup resolves registered users by email; satisfied by *users.Service.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

// Service implements contact operations over a Store.
type Service struct {
	store  Store
	lookup UserLookup
	logger *slog.Logger
}

// NewService creates a contact service.
func NewService(log *slog.Logger, store Store, lookup UserLookup) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		lookup: lookup,
		logger: log.With(slog.String("service", "contacts")),
	}
}

// Add records that the owner added contactEmail. The contact must belong to a
// registered user and must not be the owner's own address. Duplicate adds,
// including concurrent ones, succeed exactly once.
func (s *Service) Add(ctx context.Context, ownerID, ownerEmail, contactEmail string) (Relation, error) {
	if s.store == nil {
		return Relation{}, fmt.Errorf("contact store not configured")
	}
	contactEmail = conversation.NormalizeEmail(contactEmail)
	if contactEmail == "" {
		return Relation{}, users.ErrNotFound
	}
	if contactEmail == conversation.NormalizeEmail(ownerEmail) {
		return Relation{}, ErrSelfAdd
	}
	if s.lookup != nil {
		if _, err := s.lookup.GetByEmail(ctx, contactEmail); err != nil {
			return Relation{}, err
		}
	}
	relation, err := s.store.Insert(ctx, ownerID, contactEmail)
	if err != nil {
		return Relation{}, err
	}
	s.logger.Info("contact added",
		slog.String("owner_id", ownerID),
		slog.String("contact_email", contactEmail),
	)
	return relation, nil
}

// List returns the contact emails the owner has added. No contacts is an
// empty slice, not an error.
func (s *Service) List(ctx context.Context, ownerID string) ([]string, error) {
	if s.store == nil {
		return nil, fmt.Errorf("contact store not configured")
	}
	emails, err := s.store.ListEmails(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if emails == nil {
		emails = []string{}
	}
	return emails, nil
}

// Remove deletes a relation. Removing an absent relation is ErrNotFound.
func (s *Service) Remove(ctx context.Context, ownerID, contactEmail string) error {
	if s.store == nil {
		return fmt.Errorf("contact store not configured")
	}
	err := s.store.Delete(ctx, ownerID, conversation.NormalizeEmail(contactEmail))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove contact: %w", err)
	}
	return err
}
