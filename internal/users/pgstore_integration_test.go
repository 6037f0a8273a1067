package users_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swifttalkhq/swifttalk/internal/users"
)

func setupUsersIntegrationTest(t *testing.T) (*users.PGStore, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}

	return users.NewPGStore(pool), func() { pool.Close() }
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@integration.test", prefix, uuid.NewString()[:8])
}

func TestPGStoreCreateAndFetch(t *testing.T) {
	store, teardown := setupUsersIntegrationTest(t)
	defer teardown()

	ctx := context.Background()
	email := uniqueEmail("create")

	created, err := store.Create(ctx, email, "hash-value")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}

	fetched, hash, err := store.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if hash != "hash-value" {
		t.Fatalf("expected stored hash, got %q", hash)
	}
	if fetched.ID != created.ID {
		t.Fatalf("id mismatch: %s vs %s", fetched.ID, created.ID)
	}

	byID, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if byID.Email != email {
		t.Fatalf("email mismatch: %s", byID.Email)
	}

	if _, err := store.Create(ctx, email, "other-hash"); !errors.Is(err, users.ErrEmailInUse) {
		t.Fatalf("duplicate create err = %v, want ErrEmailInUse", err)
	}
}

func TestPGStoreUpdateProfile(t *testing.T) {
	store, teardown := setupUsersIntegrationTest(t)
	defer teardown()

	ctx := context.Background()
	created, err := store.Create(ctx, uniqueEmail("profile"), "hash-value")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	username := "it-" + uuid.NewString()[:8]
	updated, err := store.UpdateProfile(ctx, created.ID, users.Profile{
		FirstName: "Grace",
		Surname:   "Hopper",
		Username:  username,
	})
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if updated.Username != username || updated.FirstName != "Grace" {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	other, err := store.Create(ctx, uniqueEmail("profile2"), "hash-value")
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if _, err := store.UpdateProfile(ctx, other.ID, users.Profile{Username: username}); !errors.Is(err, users.ErrUsernameTaken) {
		t.Fatalf("duplicate username err = %v, want ErrUsernameTaken", err)
	}
}
