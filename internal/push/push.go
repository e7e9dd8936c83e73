package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"garabu.org/internal/auth"
	"garabu.org/internal/ledger"
	"garabu.org/internal/obs"
)

// Summary is the condensed view of a new transaction carried in push alerts
// to other book members.
type Summary struct {
	BookID      int64             `json:"bookId"`
	Description string            `json:"description"`
	Amount      int64             `json:"amount"`
	AmountType  ledger.AmountType `json:"amountType,omitempty"`
	Currency    string            `json:"currency,omitempty"`
}

type alertRequest struct {
	ActorUserID string  `json:"actorUserId"`
	Transaction Summary `json:"transaction"`
}

// Dispatcher sends best-effort push alerts through the backend's notifier.
// Delivery itself (FCM tokens, retries) is the backend's problem; this side
// makes one attempt and reports the error for the caller to log.
type Dispatcher struct {
	base    string
	http    *http.Client
	tokens  auth.TokenSource
	limiter *rate.Limiter
}

// NewDispatcher creates a dispatcher for the given backend base URL.
func NewDispatcher(base string, tokens auth.TokenSource) *Dispatcher {
	return &Dispatcher{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: obs.InstrumentTransport(nil),
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(2), 5),
	}
}

// SendNewTransactionAlert asks the backend to alert other members of the
// book about a new transaction. Alerts beyond the rate budget are dropped.
func (d *Dispatcher) SendNewTransactionAlert(ctx context.Context, actorUserID string, s Summary) error {
	if !d.limiter.Allow() {
		obs.CountPushDropped()
		return nil
	}

	token, err := d.tokens.Token(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(alertRequest{ActorUserID: actorUserID, Transaction: s})
	if err != nil {
		return fmt.Errorf("encode push alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.base+"/v1/notifications/transactions", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("push alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push alert: status %d", resp.StatusCode)
	}
	return nil
}
