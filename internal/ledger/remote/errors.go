package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDuplicate is a server-detected conflict (e.g. a duplicate category
	// or payment name). Matches *APIError with status 409 via errors.Is.
	ErrDuplicate = errors.New("duplicate resource")

	// ErrUnavailable wraps transport failures where no response arrived.
	ErrUnavailable = errors.New("backend unreachable")
)

// APIError is a failure reported by the backend (4xx/5xx). Message carries
// the server-provided detail when present so the UI can show it verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error %d", e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrDuplicate && e.Status == http.StatusConflict
}

// IsValidation reports whether the backend rejected the request on its own
// re-validation (4xx other than conflict/auth).
func (e *APIError) IsValidation() bool {
	return e.Status >= 400 && e.Status < 500 &&
		e.Status != http.StatusConflict &&
		e.Status != http.StatusUnauthorized &&
		e.Status != http.StatusForbidden
}
