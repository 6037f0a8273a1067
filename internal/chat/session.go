package chat

import (
	"context"

	"github.com/swifttalkhq/swifttalk/internal/auth"
	"github.com/swifttalkhq/swifttalk/internal/message"
)

// Session is one open conversation view. Messages() yields the full history
// followed by live appends, in timestamp order, each exactly once.
type Session struct {
	identity auth.Identity
	key      string
	store    *message.Store
	sub      *message.Subscription
}

// Key returns the canonical conversation key of the session.
func (s *Session) Key() string {
	return s.key
}

// Messages returns the live ordered stream. The channel closes when the
// session is closed or the underlying subscription is lost; callers may
// reopen to retry.
func (s *Session) Messages() <-chan message.Message {
	return s.sub.C()
}

// Send appends body to the conversation. The message is returned only after
// the store confirms the write, so a caller holding a draft clears it on
// success and keeps it on failure.
func (s *Session) Send(ctx context.Context, body string) (message.Message, error) {
	return s.store.Append(ctx, s.identity.Email, s.key, body)
}

// Close cancels the session's subscription. Safe to call multiple times.
func (s *Session) Close() {
	s.sub.Close()
}
