package validation

import (
	"fmt"
	"time"
)

// Common validation errors
var (
	ErrInvalidTimestamp = fmt.Errorf("invalid timestamp format")
	ErrInvalidDateRange = fmt.Errorf("invalid date range")
)

// timestampLayouts are the accepted wire formats for timestamps, tried in
// order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// ParseTimestamp parses a request timestamp in any accepted layout.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTimestamp, value)
}
