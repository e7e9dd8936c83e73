package obs

import (
	"errors"
	"strings"
	"time"
)

// Event writes a structured event line enriched with common fields.
// The submission flow uses it to record outcomes and tolerated secondary
// failures (balance mutation, sync broadcast, push alert).
func Event(event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "event",
		"event": event,
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}
	LogEntry(entry)
	return nil
}
