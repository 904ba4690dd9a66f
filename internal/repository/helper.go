package repository

import (
	"fmt"
	"time"
)

// timeLayouts are tried in order. Naive timestamps are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp with or without zone offset.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", str)
}

// FormatTime renders t the way ParseTime reads it back.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
