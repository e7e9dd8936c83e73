package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"garabu.org/internal/auth"
	"garabu.org/internal/ids"
	"garabu.org/internal/ledger"
	"garabu.org/internal/obs"
)

// Client is the HTTP client for the household-ledger backend. All requests
// carry a bearer token from the TokenSource; a missing token fails the call
// before any network I/O.
type Client struct {
	base   string
	http   *http.Client
	tokens auth.TokenSource
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (timeouts, transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a backend client with instrumented transport and a default
// request timeout.
func New(base string, tokens auth.TokenSource, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: obs.InstrumentTransport(nil),
		},
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LedgerCreate is the body of the ledger-creation call.
type LedgerCreate struct {
	BookID      int64             `json:"bookId"`
	Date        ledger.Date       `json:"date"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Memo        string            `json:"memo"`
	AmountType  ledger.AmountType `json:"amountType"`
	Category    string            `json:"category"`
	Payment     string            `json:"payment"`
	Spender     string            `json:"spender"`
	TagIDs      []int64           `json:"tagIds,omitempty"`
	Currency    string            `json:"currency,omitempty"`
}

// TransferCreate is the body of the transfer-creation call. The backend
// applies both asset sides atomically when both ids are present.
type TransferCreate struct {
	BookID      int64       `json:"bookId"`
	Date        ledger.Date `json:"date"`
	Amount      int64       `json:"amount"`
	Description string      `json:"description"`
	Memo        string      `json:"memo"`
	FromAssetID int64       `json:"fromAssetId,omitempty"`
	ToAssetID   int64       `json:"toAssetId,omitempty"`
	Transferer  string      `json:"transferer"`
}

type adjustBalanceRequest struct {
	Amount    int64            `json:"amount"`
	Operation ledger.BalanceOp `json:"operation"`
}

// CreateLedger records an income or expense entry and returns it with the
// server-assigned id. The idempotency key guards against double submission.
func (c *Client) CreateLedger(ctx context.Context, in LedgerCreate, idemKey string) (ledger.Entry, error) {
	var out ledger.Entry
	if err := c.do(ctx, http.MethodPost, "/v1/ledgers", idemKey, in, &out); err != nil {
		return ledger.Entry{}, err
	}
	return out, nil
}

// CreateTransfer records a transfer between assets of the same book.
func (c *Client) CreateTransfer(ctx context.Context, in TransferCreate, idemKey string) (ledger.Transfer, error) {
	var out ledger.Transfer
	if err := c.do(ctx, http.MethodPost, "/v1/transfers", idemKey, in, &out); err != nil {
		return ledger.Transfer{}, err
	}
	return out, nil
}

// AdjustBalance applies an additive or subtractive delta to one asset's
// stored balance and returns the updated asset.
func (c *Client) AdjustBalance(ctx context.Context, assetID, amount int64, op ledger.BalanceOp) (ledger.Asset, error) {
	if amount <= 0 {
		return ledger.Asset{}, ledger.ErrInvalidAmount
	}
	var out ledger.Asset
	path := "/v1/assets/" + strconv.FormatInt(assetID, 10) + "/balance"
	if err := c.do(ctx, http.MethodPost, path, "", adjustBalanceRequest{Amount: amount, Operation: op}, &out); err != nil {
		return ledger.Asset{}, err
	}
	return out, nil
}

// GetBook fetches book metadata, including its base currency.
func (c *Client) GetBook(ctx context.Context, bookID int64) (ledger.Book, error) {
	var out ledger.Book
	path := "/v1/books/" + strconv.FormatInt(bookID, 10)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return ledger.Book{}, err
	}
	return out, nil
}

// ListAssets returns the book's assets for the payment picker.
func (c *Client) ListAssets(ctx context.Context, bookID int64) ([]ledger.Asset, error) {
	var out []ledger.Asset
	if err := c.do(ctx, http.MethodGet, bookPath(bookID, "assets"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns the book's categories.
func (c *Client) ListCategories(ctx context.Context, bookID int64) ([]ledger.Category, error) {
	var out []ledger.Category
	if err := c.do(ctx, http.MethodGet, bookPath(bookID, "categories"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPayments returns the book's payment methods.
func (c *Client) ListPayments(ctx context.Context, bookID int64) ([]ledger.PaymentMethod, error) {
	var out []ledger.PaymentMethod
	if err := c.do(ctx, http.MethodGet, bookPath(bookID, "payments"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTags returns the book's tags.
func (c *Client) ListTags(ctx context.Context, bookID int64) ([]ledger.Tag, error) {
	var out []ledger.Tag
	if err := c.do(ctx, http.MethodGet, bookPath(bookID, "tags"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func bookPath(bookID int64, resource string) string {
	return "/v1/books/" + strconv.FormatInt(bookID, 10) + "/" + resource
}

// do performs one request. Exactly one attempt: failed calls are reported
// once and require explicit user re-action, no retry or backoff.
func (c *Client) do(ctx context.Context, method, path, idemKey string, in, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", ids.New())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ledger.ErrNotFound
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		msg = payload.Error
		if msg == "" {
			msg = payload.Message
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
