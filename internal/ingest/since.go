package ingest

import (
	"errors"
	"time"
)

// ParseSince reads a lookback window: either a positive duration back from
// now ("36h") or an RFC 3339 timestamp. An empty value yields the zero time.
func ParseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return time.Time{}, errors.New("since must be a positive duration")
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New("since must be a duration or an RFC 3339 timestamp")
	}
	return t, nil
}
