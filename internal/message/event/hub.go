// Package event provides the in-memory pub/sub hub for message delivery.
package event

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultBufferSize is the default per-subscriber channel buffer.
const DefaultBufferSize = 64

// Type identifies the event category published by the message event hub.
type Type string

// TypeMessageCreated is emitted after a message is persisted successfully.
const TypeMessageCreated Type = "message_created"

// Event is the payload emitted by the hub, scoped to one conversation key.
type Event struct {
	Type Type            `json:"type"`
	Key  string          `json:"conversation_key"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Hub is an in-process pub/sub dispatcher keyed by conversation.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[string]chan Event
}

// NewHub creates an empty event hub.
func NewHub() *Hub {
	return &Hub{
		streams: map[string]map[string]chan Event{},
	}
}

// Publish broadcasts one event to all subscribers of the same conversation
// key without blocking the persistence path. A subscriber whose buffer is
// full cannot receive the event, and skipping it would leave an invisible
// gap in its stream; its channel is closed instead so the consumer sees the
// stream end and can resubscribe.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(event.Key)
	if key == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	streams := h.streams[key]
	for streamID, ch := range streams {
		select {
		case ch <- event:
		default:
			delete(streams, streamID)
			close(ch)
		}
	}
	if len(streams) == 0 {
		delete(h.streams, key)
	}
}

// Subscribe registers one subscriber under a conversation key.
// It returns a stream ID, read-only event channel, and a cancel function.
// Cancel is idempotent and closes the channel.
func (h *Hub) Subscribe(key string, buffer int) (string, <-chan Event, func()) {
	key = strings.TrimSpace(key)
	if h == nil || key == "" {
		ch := make(chan Event)
		close(ch)
		return "", ch, func() {}
	}
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}

	streamID := uuid.NewString()
	ch := make(chan Event, buffer)

	h.mu.Lock()
	streams, ok := h.streams[key]
	if !ok {
		streams = map[string]chan Event{}
		h.streams[key] = streams
	}
	streams[streamID] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			streams := h.streams[key]
			if streams != nil {
				if current, ok := streams[streamID]; ok {
					delete(streams, streamID)
					close(current)
				}
				if len(streams) == 0 {
					delete(h.streams, key)
				}
			}
			h.mu.Unlock()
		})
	}

	return streamID, ch, cancel
}
