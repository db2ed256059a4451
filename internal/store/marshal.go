package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout is the text form of ledger timestamps.
const timeLayout = time.RFC3339Nano

// MarshalJSON encodes v for a JSON column, without HTML escaping.
func MarshalJSON(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimSpace(buf.Bytes()), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
