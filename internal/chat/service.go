// Package chat exposes the client-facing messaging operations: contact
// management, user search, and per-conversation sessions.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/swifttalkhq/swifttalk/internal/auth"
	"github.com/swifttalkhq/swifttalk/internal/contacts"
	"github.com/swifttalkhq/swifttalk/internal/conversation"
	"github.com/swifttalkhq/swifttalk/internal/message"
	"github.com/swifttalkhq/swifttalk/internal/users"
)

// Service drives the chat screens on behalf of one verified caller identity
// per call. It never consults ambient authentication state.
type Service struct {
	users    *users.Service
	contacts *contacts.Service
	messages *message.Store
	logger   *slog.Logger
}

// NewService creates the chat service.
func NewService(log *slog.Logger, userService *users.Service, contactService *contacts.Service, messageStore *message.Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:    userService,
		contacts: contactService,
		messages: messageStore,
		logger:   log.With(slog.String("service", "chat")),
	}
}

// SearchUserByEmail checks whether an address belongs to a registered user.
func (s *Service) SearchUserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// AddContact records the caller adding another user by email.
func (s *Service) AddContact(ctx context.Context, identity auth.Identity, email string) (contacts.Relation, error) {
	return s.contacts.Add(ctx, identity.UserID, identity.Email, email)
}

// ListContacts returns the emails the caller has added.
func (s *Service) ListContacts(ctx context.Context, identity auth.Identity) ([]string, error) {
	return s.contacts.List(ctx, identity.UserID)
}

// RemoveContact deletes one of the caller's contact relations.
func (s *Service) RemoveContact(ctx context.Context, identity auth.Identity, email string) error {
	return s.contacts.Remove(ctx, identity.UserID, email)
}

// History returns the caller's conversation with otherEmail, oldest first.
func (s *Service) History(ctx context.Context, identity auth.Identity, otherEmail string) ([]message.Message, error) {
	key := conversation.Key(identity.Email, otherEmail)
	return s.messages.History(ctx, identity.Email, key)
}

// Send appends one message to the caller's conversation with otherEmail.
func (s *Service) Send(ctx context.Context, identity auth.Identity, otherEmail, body string) (message.Message, error) {
	key := conversation.Key(identity.Email, otherEmail)
	return s.messages.Append(ctx, identity.Email, key, body)
}

// Open starts a session for the caller's conversation with otherEmail:
// a live ordered stream plus a send path that confirms before the caller
// clears any draft state.
func (s *Service) Open(ctx context.Context, identity auth.Identity, otherEmail string) (*Session, error) {
	if s.messages == nil {
		return nil, fmt.Errorf("message store not configured")
	}
	key := conversation.Key(identity.Email, otherEmail)
	sub, err := s.messages.Subscribe(ctx, identity.Email, key, 0)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("conversation opened",
		slog.String("user_id", identity.UserID),
		slog.String("peer", conversation.NormalizeEmail(otherEmail)),
	)
	return &Session{
		identity: identity,
		key:      key,
		store:    s.messages,
		sub:      sub,
	}, nil
}
