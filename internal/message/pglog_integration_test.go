package message_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swifttalkhq/swifttalk/internal/conversation"
	"github.com/swifttalkhq/swifttalk/internal/message"
)

func setupLogIntegrationTest(t *testing.T) (*message.PGLog, func()) {
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

	return message.NewPGLog(pool), func() { pool.Close() }
}

func TestPGLogInsertAndList(t *testing.T) {
	log, teardown := setupLogIntegrationTest(t)
	defer teardown()

	ctx := context.Background()
	a := uuid.NewString()[:8] + "@integration.test"
	b := uuid.NewString()[:8] + "@integration.test"
	key := conversation.Key(a, b)

	last, err := log.LastCreatedAt(ctx, key)
	if err != nil {
		t.Fatalf("last created at on empty log failed: %v", err)
	}
	if !last.IsZero() {
		t.Fatalf("expected zero time for empty conversation, got %s", last)
	}

	base := time.Now().UTC().Truncate(time.Microsecond)
	bodies := []string{"first", "second", "third"}
	for i, body := range bodies {
		msg := message.Message{
			ID:              uuid.NewString(),
			ConversationKey: key,
			SenderEmail:     a,
			Body:            body,
			CreatedAt:       base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := log.Insert(ctx, msg); err != nil {
			t.Fatalf("insert %q failed: %v", body, err)
		}
	}

	listed, err := log.ListAsc(ctx, key)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != len(bodies) {
		t.Fatalf("listed %d messages, want %d", len(listed), len(bodies))
	}
	for i, msg := range listed {
		if msg.Body != bodies[i] {
			t.Fatalf("message %d body = %q, want %q", i, msg.Body, bodies[i])
		}
	}

	last, err = log.LastCreatedAt(ctx, key)
	if err != nil {
		t.Fatalf("last created at failed: %v", err)
	}
	want := base.Add(2 * time.Millisecond)
	if !last.Equal(want) {
		t.Fatalf("last created at = %s, want %s", last, want)
	}
}
