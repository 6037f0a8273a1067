package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstThenDeny(t *testing.T) {
	l := New(1, 3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4", now) {
			t.Fatalf("request %d within burst denied", i)
		}
	}
	if l.Allow("1.2.3.4", now) {
		t.Fatal("request beyond burst allowed")
	}

	// Other keys have their own bucket.
	if !l.Allow("5.6.7.8", now) {
		t.Fatal("separate key denied")
	}

	// Tokens refill over time.
	if !l.Allow("1.2.3.4", now.Add(2*time.Second)) {
		t.Fatal("request after refill denied")
	}
}

func TestLimiterNilAndEmptyKeyAllow(t *testing.T) {
	var l *Limiter
	if !l.Allow("1.2.3.4", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if valid := New(1, 1, 0); !valid.Allow("  ", time.Now()) {
		t.Fatal("empty key must allow")
	}
}

func TestNewInvalidArgs(t *testing.T) {
	if New(0, 1, time.Minute) != nil {
		t.Error("expected nil for zero rps")
	}
	if New(1, 0, time.Minute) != nil {
		t.Error("expected nil for zero burst")
	}
}
