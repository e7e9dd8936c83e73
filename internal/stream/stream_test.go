package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"garabu.org/internal/auth"
)

func TestPublishFanOut(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)

	evt, err := NewEvent(EventLedgerCreated, 3, "user-1", map[string]any{"id": 101})
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	s.Publish(evt)

	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			if got.Type != EventLedgerCreated || got.BookID != 3 {
				t.Fatalf("unexpected event: %#v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSubscribeClosedOnContextEnd(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context end")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.Publish(Event{Type: EventAssetUpdated, BookID: 1})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestNotifierSendUpdate(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sync/broadcast" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("unexpected auth: %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, auth.StaticToken("tok"))
	evt, _ := NewEvent(EventLedgerCreated, 3, "user-1", map[string]int64{"id": 101})
	if err := n.SendUpdate(context.Background(), evt); err != nil {
		t.Fatalf("SendUpdate failed: %v", err)
	}
	if got.Type != EventLedgerCreated || got.BookID != 3 || got.ActorID != "user-1" {
		t.Fatalf("unexpected broadcast payload: %#v", got)
	}
}

func TestNotifierDropsUnderRatePressure(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, auth.StaticToken("tok"))
	n.limiter = rate.NewLimiter(rate.Limit(0), 1) // one event, then dry

	evt, _ := NewEvent(EventLedgerCreated, 3, "", nil)
	if err := n.SendUpdate(context.Background(), evt); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	// Exhausted budget: dropped silently, not an error.
	if err := n.SendUpdate(context.Background(), evt); err != nil {
		t.Fatalf("dropped send must not error: %v", err)
	}
	if requests.Load() != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", requests.Load())
	}
}

func TestListenerPublishesDecodedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sync/stream" || r.URL.Query().Get("bookId") != "3" {
			t.Fatalf("unexpected request: %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": stream started\n\n"))
		_, _ = w.Write([]byte(`data: {"type":"LEDGER_CREATED","bookId":3,"actorId":"user-2"}` + "\n\n"))
		_, _ = w.Write([]byte("data: not-json\n\n"))
		// One event split across two data lines.
		_, _ = w.Write([]byte(`data: {"type":"TRANSFER_CREATED",` + "\n"))
		_, _ = w.Write([]byte(`data: "bookId":3}` + "\n\n"))
		_, _ = w.Write([]byte(`data: {"type":"ASSET_UPDATED","bookId":3}` + "\n"))
	}))
	defer srv.Close()

	out := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := out.Subscribe(ctx)

	l := NewListener(srv.URL, auth.StaticToken("tok"), out)
	done := make(chan error, 1)
	go func() { done <- l.Listen(ctx, 3) }()

	var types []string
	for len(types) < 3 {
		select {
		case evt := <-ch:
			types = append(types, evt.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for events, got %v", types)
		}
	}
	want := []string{EventLedgerCreated, EventTransferCreated, EventAssetUpdated}
	for i, typ := range want {
		if types[i] != typ {
			t.Fatalf("unexpected event order: got %v, want %v", types, want)
		}
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Listen returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after stream end")
	}
}
