package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event types exchanged between clients of the same book.
const (
	EventLedgerCreated   = "LEDGER_CREATED"
	EventTransferCreated = "TRANSFER_CREATED"
	EventAssetUpdated    = "ASSET_UPDATED"
)

// Event tells other connected clients of a book that local state may be
// stale. Transient: never persisted, never a source of truth.
type Event struct {
	Type      string          `json:"type"`
	BookID    int64           `json:"bookId"`
	ActorID   string          `json:"actorId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an event with the payload marshalled in place.
func NewEvent(eventType string, bookID int64, actorID string, payload any) (Event, error) {
	evt := Event{
		Type:      eventType,
		BookID:    bookID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		evt.Payload = data
	}
	return evt, nil
}

// Stream fan-outs events to in-process subscribers (screens observing the
// same store), so a mutation on one screen refreshes the others without a
// refetch.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
