package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, subject, name string, ttl time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestInspect(t *testing.T) {
	token := signTestToken(t, "user-42", "Hana", time.Hour)
	p, err := Inspect(token)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if p.UserID != "user-42" || p.Name != "Hana" {
		t.Fatalf("unexpected principal: %#v", p)
	}
}

func TestInspectExpired(t *testing.T) {
	token := signTestToken(t, "user-42", "Hana", -time.Minute)
	if _, err := Inspect(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestInspectEmpty(t *testing.T) {
	if _, err := Inspect("  "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store := NewFileStore(path)
	ctx := context.Background()

	if _, err := store.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken before save, got %v", err)
	}

	if err := store.Save("abc.def.ghi"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Token(ctx)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if got != "abc.def.ghi" {
		t.Fatalf("unexpected token: %q", got)
	}

	// A fresh store reads the persisted value back.
	fresh := NewFileStore(path)
	got, err = fresh.Token(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("persisted token not readable: %q, %v", got, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
}

func TestStaticToken(t *testing.T) {
	ctx := context.Background()
	if _, err := StaticToken("").Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	got, err := StaticToken("tok").Token(ctx)
	if err != nil || got != "tok" {
		t.Fatalf("unexpected static token result: %q, %v", got, err)
	}
}
