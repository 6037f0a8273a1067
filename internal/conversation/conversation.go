// Package conversation derives canonical conversation keys and authorizes access to them.
//
// A conversation between two users is addressed by a single key regardless of
// which participant opens it. Every message read, write, or subscription must
// pass Authorize before touching the store; scoping happens here, never by
// filtering rows after retrieval.
package conversation

import (
	"errors"
	"strings"
)

// keySeparator joins the two participant emails. It cannot occur in an email
// address, so keys split unambiguously.
const keySeparator = "|"

var (
	// ErrInvalidKey is returned when a key does not encode exactly two participants.
	ErrInvalidKey = errors.New("invalid conversation key")
	// ErrNotParticipant is returned when the caller is not one of the two participants.
	ErrNotParticipant = errors.New("not a conversation participant")
)

// NormalizeEmail lowercases and trims an address. All key derivation and
// participant comparison goes through this, so "Alice@X.com" and "alice@x.com"
// address the same conversation.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Key derives the canonical conversation key for two participants.
// It is symmetric: Key(a, b) == Key(b, a) for all inputs, and distinct
// unordered pairs produce distinct keys.
func Key(emailA, emailB string) string {
	a := NormalizeEmail(emailA)
	b := NormalizeEmail(emailB)
	if a > b {
		a, b = b, a
	}
	return a + keySeparator + b
}

// Participants returns the two emails encoded in a key.
func Participants(key string) (string, string, error) {
	parts := strings.Split(key, keySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidKey
	}
	return parts[0], parts[1], nil
}

// Authorize reports whether callerEmail may read or write the conversation.
// The denial is generic: it does not reveal whether the conversation exists.
func Authorize(callerEmail, key string) error {
	a, b, err := Participants(key)
	if err != nil {
		return ErrNotParticipant
	}
	caller := NormalizeEmail(callerEmail)
	if caller == "" || (caller != a && caller != b) {
		return ErrNotParticipant
	}
	return nil
}

// Peer returns the other participant of the key from the caller's perspective.
func Peer(callerEmail, key string) (string, error) {
	if err := Authorize(callerEmail, key); err != nil {
		return "", err
	}
	a, b, _ := Participants(key)
	if NormalizeEmail(callerEmail) == a {
		return b, nil
	}
	return a, nil
}
