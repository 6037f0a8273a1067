// Package message provides the append-only conversation log with ordered
// retrieval and live subscriptions.
package message

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swifttalkhq/swifttalk/internal/conversation"
	"github.com/swifttalkhq/swifttalk/internal/message/event"
)

// Store appends, reads, and streams conversation messages. Appends to the
// same conversation key are serialized; appends to different keys proceed in
// parallel.
type Store struct {
	log    Log
	hub    *event.Hub
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]*keyState
}

// keyState serializes appends for one conversation and tracks the last
// assigned timestamp so ordering survives wall-clock regression.
type keyState struct {
	mu     sync.Mutex
	last   time.Time
	loaded bool
}

// NewStore creates a message store over a persistence log and an event hub.
func NewStore(log *slog.Logger, persistence Log, hub *event.Hub) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		log:    persistence,
		hub:    hub,
		logger: log.With(slog.String("service", "message")),
		keys:   map[string]*keyState{},
	}
}

func (s *Store) keyState(key string) *keyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks, ok := s.keys[key]
	if !ok {
		ks = &keyState{}
		s.keys[key] = ks
	}
	return ks
}

// Append persists one message. The caller must be a participant of the key.
// The assigned timestamp is strictly greater than the previous message's in
// the same conversation, even under concurrent writers.
func (s *Store) Append(ctx context.Context, callerEmail, key, body string) (Message, error) {
	if err := conversation.Authorize(callerEmail, key); err != nil {
		return Message{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}

	ks := s.keyState(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if !ks.loaded {
		last, err := s.log.LastCreatedAt(ctx, key)
		if err != nil {
			return Message{}, err
		}
		ks.last = last
		ks.loaded = true
	}

	ts := time.Now().UTC()
	if !ts.After(ks.last) {
		ts = ks.last.Add(time.Microsecond)
	}

	msg := Message{
		ID:              uuid.NewString(),
		ConversationKey: key,
		SenderEmail:     conversation.NormalizeEmail(callerEmail),
		Body:            body,
		CreatedAt:       ts,
	}
	if err := s.log.Insert(ctx, msg); err != nil {
		return Message{}, err
	}
	ks.last = ts

	s.publishCreated(msg)
	return msg, nil
}

// History returns the conversation's messages in ascending timestamp order.
func (s *Store) History(ctx context.Context, callerEmail, key string) ([]Message, error) {
	if err := conversation.Authorize(callerEmail, key); err != nil {
		return nil, err
	}
	return s.log.ListAsc(ctx, key)
}

// Subscribe returns a live, ordered stream for the conversation: the full
// history first, then each subsequent append exactly once. The stream
// channel closes when the subscription is cancelled, ctx ends, or the
// consumer falls too far behind to receive without loss; in every case the
// close is observable and resubscribing replays history, so a retrying
// caller never ends up with a silent gap.
func (s *Store) Subscribe(ctx context.Context, callerEmail, key string, buffer int) (*Subscription, error) {
	if err := conversation.Authorize(callerEmail, key); err != nil {
		return nil, err
	}
	if buffer <= 0 {
		buffer = event.DefaultBufferSize
	}

	// Register with the hub before reading history so nothing appended in
	// between is missed; overlap is removed by message-ID dedup below.
	_, events, cancel := s.hub.Subscribe(key, buffer*2)

	history, err := s.log.ListAsc(ctx, key)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		out:    make(chan Message, buffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go sub.pump(ctx, s.logger, history, events)
	return sub, nil
}

func (s *Store) publishCreated(msg Message) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("marshal message event failed", slog.Any("error", err))
		return
	}
	s.hub.Publish(event.Event{
		Type: event.TypeMessageCreated,
		Key:  msg.ConversationKey,
		Data: payload,
	})
}

// Subscription is a live ordered message stream for one conversation.
type Subscription struct {
	out    chan Message
	done   chan struct{}
	cancel func()
	once   sync.Once
}

// C returns the stream channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Message {
	return s.out
}

// Close cancels the subscription. It is safe to call multiple times; no
// message is delivered after it returns, though one already handed to the
// consumer may still be processed.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

func (sub *Subscription) pump(ctx context.Context, logger *slog.Logger, history []Message, events <-chan event.Event) {
	defer close(sub.out)

	seen := make(map[string]struct{}, len(history))
	deliver := func(msg Message) bool {
		if _, dup := seen[msg.ID]; dup {
			return true
		}
		seen[msg.ID] = struct{}{}
		select {
		case sub.out <- msg:
			return true
		case <-sub.done:
			return false
		case <-ctx.Done():
			return false
		}
	}

	for _, msg := range history {
		if !deliver(msg) {
			return
		}
	}

	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != event.TypeMessageCreated || len(ev.Data) == 0 {
				continue
			}
			var msg Message
			if err := json.Unmarshal(ev.Data, &msg); err != nil {
				logger.Warn("decode message event failed", slog.Any("error", err))
				continue
			}
			if !deliver(msg) {
				return
			}
		}
	}
}
