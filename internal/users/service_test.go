package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store with the same uniqueness guarantees as the
// PostgreSQL schema.
type memStore struct {
	mu      sync.Mutex
	nextID  int
	byEmail map[string]*memUser
	byID    map[string]*memUser
}

type memUser struct {
	user User
	hash string
}

func newMemStore() *memStore {
	return &memStore{
		byEmail: map[string]*memUser{},
		byID:    map[string]*memUser{},
	}
}

func (s *memStore) Create(_ context.Context, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return User{}, ErrEmailInUse
	}
	s.nextID++
	u := &memUser{
		user: User{
			ID:        fmt.Sprintf("user-%d", s.nextID),
			Email:     email,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		hash: passwordHash,
	}
	s.byEmail[email] = u
	s.byID[u.user.ID] = u
	return u.user, nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return User{}, "", ErrNotFound
	}
	return u.user, u.hash, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u.user, nil
}

func (s *memStore) UpdateProfile(_ context.Context, id string, profile Profile) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	for otherID, other := range s.byID {
		if otherID != id && other.user.Username == profile.Username {
			return User{}, ErrUsernameTaken
		}
	}
	u.user.FirstName = profile.FirstName
	u.user.Surname = profile.Surname
	u.user.Username = profile.Username
	u.user.UpdatedAt = time.Now()
	return u.user, nil
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(nil, newMemStore())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"malformed email", "not-an-email", "secret1", ErrInvalidEmail},
		{"empty email", "", "secret1", ErrInvalidEmail},
		{"display name form", "Alice <alice@x.com>", "secret1", ErrInvalidEmail},
		{"angle brackets only", "<alice@x.com>", "secret1", ErrInvalidEmail},
		{"short password", "alice@x.com", "12345", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.email, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("SignUp() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignUpAndLogin(t *testing.T) {
	svc := NewService(nil, newMemStore())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, "Alice@X.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Email != "alice@x.com" {
		t.Errorf("Email = %q, want lowercased", user.Email)
	}

	if _, err := svc.SignUp(ctx, "ALICE@x.com", "secret1"); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("duplicate SignUp() error = %v, want ErrEmailInUse", err)
	}

	got, err := svc.Login(ctx, "alice@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Login() ID = %q, want %q", got.ID, user.ID)
	}

	if _, err := svc.Login(ctx, "alice@x.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@x.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown email) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestCompleteProfile(t *testing.T) {
	svc := NewService(nil, newMemStore())
	ctx := context.Background()

	alice, err := svc.SignUp(ctx, "alice@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	bob, err := svc.SignUp(ctx, "bob@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	updated, err := svc.CompleteProfile(ctx, alice.ID, Profile{FirstName: "Alice", Surname: "Smith", Username: "alice"})
	if err != nil {
		t.Fatalf("CompleteProfile() error = %v", err)
	}
	if updated.Username != "alice" || updated.FirstName != "Alice" {
		t.Errorf("CompleteProfile() = %+v", updated)
	}

	if _, err := svc.CompleteProfile(ctx, bob.ID, Profile{Username: "alice"}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("CompleteProfile(duplicate username) error = %v, want ErrUsernameTaken", err)
	}
	if _, err := svc.CompleteProfile(ctx, bob.ID, Profile{Username: "  "}); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("CompleteProfile(blank username) error = %v, want ErrInvalidProfile", err)
	}
}

func TestGetByEmail(t *testing.T) {
	svc := NewService(nil, newMemStore())
	ctx := context.Background()

	if _, err := svc.GetByEmail(ctx, "ghost@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail(unknown) error = %v, want ErrNotFound", err)
	}

	created, err := svc.SignUp(ctx, "carol@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	got, err := svc.GetByEmail(ctx, "Carol@X.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", got.ID, created.ID)
	}
}
