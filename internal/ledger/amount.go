package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw form value into integer minor units. Grouping
// separators are stripped before parsing and fractional minor units are
// truncated toward zero, so "12,000" and "12000.7" both become 12000.
func ParseAmount(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	trunc := d.Truncate(0)
	if !trunc.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, raw)
	}
	amount := trunc.IntPart()
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// ParseDate parses a "2006-01-02" form value and rejects dates after today.
// The backend enforces the same past-or-present constraint; checking here
// saves the round trip.
func ParseDate(raw string, now time.Time) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, fmt.Errorf("date is required")
	}
	t, err := time.ParseInLocation(dateLayout, raw, now.Location())
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", raw)
	}
	d := DateOf(t)
	if d.After(DateOf(now)) {
		return Date{}, ErrFutureDate
	}
	return d, nil
}
