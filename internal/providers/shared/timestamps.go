package shared

import (
	"strconv"
	"strings"
	"time"
)

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestampString accepts RFC 3339 (with or without fractional seconds),
// zone-less ISO timestamps (read as UTC) and unix epochs in s/ms/µs.
func ParseTimestampString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, strconv.ErrSyntax
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
		return UnixAuto(n), nil
	}
	return time.Time{}, strconv.ErrSyntax
}

func UnixAuto(ts int64) time.Time {
	switch {
	case ts > 1_000_000_000_000_000:
		return time.UnixMicro(ts).UTC()
	case ts > 1_000_000_000_000:
		return time.UnixMilli(ts).UTC()
	default:
		return time.Unix(ts, 0).UTC()
	}
}
