package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"garabu.org/internal/auth"
	"garabu.org/internal/ledger"
)

func TestSendNewTransactionAlert(t *testing.T) {
	var got alertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/notifications/transactions" {
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

	d := NewDispatcher(srv.URL, auth.StaticToken("tok"))
	err := d.SendNewTransactionAlert(context.Background(), "user-1", Summary{
		BookID:      3,
		Description: "lunch",
		Amount:      12000,
		AmountType:  ledger.Expense,
		Currency:    "KRW",
	})
	if err != nil {
		t.Fatalf("SendNewTransactionAlert failed: %v", err)
	}
	if got.ActorUserID != "user-1" || got.Transaction.Amount != 12000 {
		t.Fatalf("unexpected alert payload: %#v", got)
	}
}

func TestAlertFailureIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, auth.StaticToken("tok"))
	if err := d.SendNewTransactionAlert(context.Background(), "user-1", Summary{}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestAlertDroppedUnderRatePressure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, auth.StaticToken("tok"))
	d.limiter = rate.NewLimiter(rate.Limit(0), 1)

	if err := d.SendNewTransactionAlert(context.Background(), "user-1", Summary{Amount: 100}); err != nil {
		t.Fatalf("first alert failed: %v", err)
	}
	if err := d.SendNewTransactionAlert(context.Background(), "user-1", Summary{Amount: 200}); err != nil {
		t.Fatalf("dropped alert should not error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 delivered alert, got %d", n)
	}
}

func TestAlertRequiresToken(t *testing.T) {
	d := NewDispatcher("http://unused", auth.StaticToken(""))
	err := d.SendNewTransactionAlert(context.Background(), "user-1", Summary{})
	if !errors.Is(err, auth.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}
