package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12,000", 12000, false},
		{"12000", 12000, false},
		{" 1,234,567 ", 1234567, false},
		{"12000.7", 12000, false}, // fractional minor units truncated
		{"9223372036854775807", 9223372036854775807, false},
		{"18446744073709563616", 0, true}, // beyond int64, must not wrap
		{"9223372036854775808", 0, true},
		{"0.9", 0, true},
		{"0", 0, true},
		{"-500", 0, true},
		{"abc", 0, true},
		{"12,0a0", 0, true},
		{"", 0, true},
		{"   ", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("ParseAmount(%q): expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q)=%d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2026, time.March, 15, 13, 45, 0, 0, time.UTC)

	d, err := ParseDate("2026-03-15", now)
	if err != nil {
		t.Fatalf("today must be accepted: %v", err)
	}
	if d.String() != "2026-03-15" {
		t.Fatalf("unexpected date: %s", d)
	}

	if _, err := ParseDate("2026-03-01", now); err != nil {
		t.Fatalf("past date must be accepted: %v", err)
	}

	if _, err := ParseDate("2026-03-16", now); !errors.Is(err, ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}

	if _, err := ParseDate("15/03/2026", now); err == nil {
		t.Fatal("expected error for malformed date")
	}

	if _, err := ParseDate("", now); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, time.January, 7)
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-01-07"` {
		t.Fatalf("unexpected JSON: %s", data)
	}
	var back Date
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.String() != d.String() {
		t.Fatalf("round trip mismatch: %s != %s", back, d)
	}
}
