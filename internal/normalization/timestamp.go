package normalization

import (
	"strconv"
	"strings"
	"time"
)

// epochMillisFloor: integer values at or above this are read as
// epoch-milliseconds, below as epoch-seconds. The floor corresponds to
// March 2973 in seconds, so no plausible seconds value crosses it.
const epochMillisFloor = int64(100000000000)

// Timestamp parses an externally supplied timestamp. Accepted shapes are
// epoch-seconds, epoch-milliseconds, and ISO-8601 / RFC 3339 strings. The
// result is normalized to UTC with millisecond precision. ok is false when
// the input is empty or unparseable; callers fall back to ingestion time.
func Timestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromEpoch(n), true
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), true
		}
	}
	return time.Time{}, false
}

// FromEpoch converts an epoch integer to UTC time, deciding between
// seconds and milliseconds by magnitude.
func FromEpoch(n int64) time.Time {
	if n >= epochMillisFloor || n <= -epochMillisFloor {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// ResolveEventTime picks the provider timestamp when parseable and the
// ingestion time otherwise.
func ResolveEventTime(raw string, ingestedAt time.Time) time.Time {
	if t, ok := Timestamp(raw); ok {
		return t
	}
	return ingestedAt.UTC().Truncate(time.Millisecond)
}
