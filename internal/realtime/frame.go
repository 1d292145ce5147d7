package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFrame marks an inbound chat frame that cannot be relayed.
var ErrInvalidFrame = errors.New("invalid frame")

const defaultAuthor = "Unknown"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// NormalizeFrame parses a client chat frame into a JSON object, rewrites a
// recognised timestamp to RFC 3339 in UTC and fills in author and
// profile_photo when the client left them out. Only frames that are not JSON
// objects are rejected.
func NormalizeFrame(data []byte) (map[string]any, error) {
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if frame == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidFrame)
	}

	// Recognised timestamps are rewritten; anything else is relayed as sent.
	if raw, ok := frame["timestamp"].(string); ok {
		if ts, err := parseTimestamp(raw); err == nil {
			frame["timestamp"] = ts.UTC().Format(time.RFC3339Nano)
		}
	}
	if _, ok := frame["author"]; !ok {
		frame["author"] = defaultAuthor
	}
	if _, ok := frame["profile_photo"]; !ok {
		frame["profile_photo"] = nil
	}
	return frame, nil
}

// Timestamps without a zone are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
