package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"garabu.org/internal/auth"
	"garabu.org/internal/obs"
)

// Listener consumes the backend's server-sent event feed for one book and
// republishes decoded events into a local Stream, so remote mutations flow
// through the same store entry points as local ones.
type Listener struct {
	base   string
	http   *http.Client
	tokens auth.TokenSource
	out    *Stream
}

// NewListener creates a listener publishing into out.
func NewListener(base string, tokens auth.TokenSource, out *Stream) *Listener {
	return &Listener{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Transport: obs.InstrumentTransport(nil)},
		tokens: tokens,
		out:    out,
	}
}

// Listen blocks consuming the feed until the context ends or the connection
// drops. One connection, no reconnect: re-establishing the feed is the
// caller's decision, the same way a failed submission requires explicit
// user re-action.
func (l *Listener) Listen(ctx context.Context, bookID int64) error {
	token, err := l.tokens.Token(ctx)
	if err != nil {
		return err
	}

	url := l.base + "/v1/sync/stream?bookId=" + strconv.FormatInt(bookID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("open sync stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync stream: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	// Successive data: lines belong to one event; a blank line ends it.
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			l.dispatch(data)
			data = data[:0]
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	l.dispatch(data)
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("sync stream closed: %w", err)
	}
	return ctx.Err()
}

func (l *Listener) dispatch(data []string) {
	payload := strings.Join(data, "\n")
	if payload == "" {
		return
	}
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		obs.LogEntry(map[string]any{
			"level": "warn",
			"msg":   "sync event decode failed",
			"error": err.Error(),
		})
		return
	}
	l.out.Publish(evt)
}
