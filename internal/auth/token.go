package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken indicates no bearer token is available. Every backend call
	// treats this as a precondition failure before any network I/O.
	ErrNoToken = errors.New("auth: missing token")

	// ErrTokenExpired indicates the persisted token is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenSource yields the bearer token attached to every backend request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Claims carried by the backend-issued bearer token. The backend verifies
// signatures; the client only reads identity and expiry.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Principal is the authenticated user as seen by this client.
type Principal struct {
	UserID string
	Name   string
}

// Inspect decodes a token without verifying its signature and checks expiry
// against the local clock. The subject becomes the user id and the name claim
// the display name used as the default spender.
func Inspect(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrNoToken
	}
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Principal{}, fmt.Errorf("auth: malformed token: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, errors.New("auth: token subject missing")
	}
	if claims.ExpiresAt != nil && time.Now().UTC().After(claims.ExpiresAt.Time) {
		return Principal{}, ErrTokenExpired
	}
	return Principal{UserID: claims.Subject, Name: claims.Name}, nil
}

// FileStore persists the bearer token as a single key-value flag on disk.
// It is the only durable state this client keeps.
type FileStore struct {
	path string

	mu     sync.Mutex
	cached string
	ready  bool
}

// NewFileStore creates a token store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		if s.cached == "" {
			return "", ErrNoToken
		}
		return s.cached, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cached = ""
			s.ready = true
			return "", ErrNoToken
		}
		return "", fmt.Errorf("auth: read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	s.cached = token
	s.ready = true
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes the token to disk and refreshes the cache.
func (s *FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("auth: token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("auth: write token file: %w", err)
	}
	s.cached = token
	s.ready = true
	return nil
}

// Clear removes the persisted token (sign-out).
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("auth: remove token file: %w", err)
	}
	s.cached = ""
	s.ready = true
	return nil
}

// StaticToken is a TokenSource for tests and short-lived CLI invocations.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}
