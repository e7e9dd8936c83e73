package obs

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEvent(t *testing.T) {
	logger := Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	if err := Event("submit.secondary_failure", map[string]any{"effect": "balance"}); err != nil {
		t.Fatalf("Event failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "event" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "submit.secondary_failure" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["effect"] != "balance" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestEventRequiresName(t *testing.T) {
	if err := Event("  ", nil); err == nil {
		t.Fatal("expected error for blank event name")
	}
}
