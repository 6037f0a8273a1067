package contacts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/swifttalkhq/swifttalk/internal/users"
)

// memStore mirrors the PostgreSQL unique constraint on (owner, email).
type memStore struct {
	mu        sync.Mutex
	nextID    int
	relations map[string]Relation // key: owner|email
}

func newMemStore() *memStore {
	return &memStore{relations: map[string]Relation{}}
}

func (s *memStore) Insert(_ context.Context, ownerID, contactEmail string) (Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerID + "|" + contactEmail
	if _, ok := s.relations[key]; ok {
		return Relation{}, ErrAlreadyAdded
	}
	s.nextID++
	r := Relation{
		ID:           fmt.Sprintf("rel-%d", s.nextID),
		OwnerID:      ownerID,
		ContactEmail: contactEmail,
		CreatedAt:    time.Now(),
	}
	s.relations[key] = r
	return r, nil
}

func (s *memStore) ListEmails(_ context.Context, ownerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var emails []string
	for _, r := range s.relations {
		if r.OwnerID == ownerID {
			emails = append(emails, r.ContactEmail)
		}
	}
	return emails, nil
}

func (s *memStore) Delete(_ context.Context, ownerID, contactEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerID + "|" + contactEmail
	if _, ok := s.relations[key]; !ok {
		return ErrNotFound
	}
	delete(s.relations, key)
	return nil
}

// registry answers GetByEmail for a fixed set of users.
type registry map[string]users.User

func (r registry) GetByEmail(_ context.Context, email string) (users.User, error) {
	u, ok := r[email]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func testRegistry() registry {
	return registry{
		"alice@x.com": {ID: "u-alice", Email: "alice@x.com"},
		"bob@x.com":   {ID: "u-bob", Email: "bob@x.com"},
	}
}

func TestAddAndList(t *testing.T) {
	svc := NewService(nil, newMemStore(), testRegistry())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u-alice", "alice@x.com", "Bob@X.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	emails, err := svc.List(ctx, "u-alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(emails) != 1 || emails[0] != "bob@x.com" {
		t.Errorf("List() = %v, want [bob@x.com]", emails)
	}
}

func TestAddSelfDenied(t *testing.T) {
	store := newMemStore()
	svc := NewService(nil, store, testRegistry())

	if _, err := svc.Add(context.Background(), "u-alice", "alice@x.com", "ALICE@x.com"); !errors.Is(err, ErrSelfAdd) {
		t.Fatalf("Add(self) error = %v, want ErrSelfAdd", err)
	}
	if len(store.relations) != 0 {
		t.Error("self-add must not create a record")
	}
}

func TestAddUnknownUser(t *testing.T) {
	svc := NewService(nil, newMemStore(), testRegistry())

	if _, err := svc.Add(context.Background(), "u-alice", "alice@x.com", "ghost@x.com"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("Add(unknown) error = %v, want users.ErrNotFound", err)
	}
}

func TestAddDuplicate(t *testing.T) {
	svc := NewService(nil, newMemStore(), testRegistry())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u-alice", "alice@x.com", "bob@x.com"); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	if _, err := svc.Add(ctx, "u-alice", "alice@x.com", "bob@x.com"); !errors.Is(err, ErrAlreadyAdded) {
		t.Fatalf("second Add() error = %v, want ErrAlreadyAdded", err)
	}
}

func TestAddConcurrentDuplicates(t *testing.T) {
	svc := NewService(nil, newMemStore(), testRegistry())
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Add(ctx, "u-alice", "alice@x.com", "bob@x.com")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyAdded):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("concurrent adds: %d successes, want exactly 1", successes)
	}
}

func TestListEmpty(t *testing.T) {
	svc := NewService(nil, newMemStore(), testRegistry())

	emails, err := svc.List(context.Background(), "u-alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if emails == nil || len(emails) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", emails)
	}
}

func TestRemoveAndReAdd(t *testing.T) {
	svc := NewService(nil, newMemStore(), testRegistry())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u-alice", "alice@x.com", "bob@x.com"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := svc.Remove(ctx, "u-alice", "bob@x.com"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := svc.Remove(ctx, "u-alice", "bob@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(absent) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Add(ctx, "u-alice", "alice@x.com", "bob@x.com"); err != nil {
		t.Errorf("re-Add() after remove error = %v", err)
	}
}
