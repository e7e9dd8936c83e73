package stream

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
	"garabu.org/internal/obs"
)

// Notifier broadcasts sync events to other connected clients of the same
// book through the backend's realtime channel. Exactly one delivery attempt,
// no acknowledgment: the sender's own state is already updated and does not
// depend on this call.
type Notifier struct {
	base    string
	http    *http.Client
	tokens  auth.TokenSource
	limiter *rate.Limiter
}

// NewNotifier creates a notifier for the given backend base URL.
func NewNotifier(base string, tokens auth.TokenSource) *Notifier {
	return &Notifier{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: obs.InstrumentTransport(nil),
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// SendUpdate posts the event to the broadcast endpoint. Events beyond the
// client-side rate budget are dropped, not queued: the channel is advisory
// and a missed event only delays the next refetch.
func (n *Notifier) SendUpdate(ctx context.Context, evt Event) error {
	if !n.limiter.Allow() {
		obs.CountSyncDropped()
		return nil
	}

	token, err := n.tokens.Token(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.base+"/v1/sync/broadcast", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("sync broadcast: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sync broadcast: status %d", resp.StatusCode)
	}
	return nil
}
