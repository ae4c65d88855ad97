package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	TimestampLayout = "2006-01-02 15:04 UTC"

	// UnknownTimePlaceholder is rendered in place of a missing or unparseable date.
	UnknownTimePlaceholder = "Unknown"
)

// Timestamp is a point in time whose zero value means "unknown".
type Timestamp struct {
	time.Time
}

var UnknownTime = Timestamp{}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) IsUnknown() bool {
	return t.Time.IsZero()
}

// String formats the timestamp in UTC with TimestampLayout.
func (t Timestamp) String() string {
	if t.IsUnknown() {
		return UnknownTimePlaceholder
	}
	return t.Time.UTC().Format(TimestampLayout)
}

// parseTimestamp prefers the value gofeed already parsed and falls back to
// dateparse for formats gofeed does not know about.
func parseTimestamp(parsed *time.Time, raw string) Timestamp {
	if parsed != nil && !parsed.IsZero() {
		return NewTimestamp(*parsed)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownTime
	}

	t, err := dateparse.ParseStrict(raw)
	if err != nil {
		return UnknownTime
	}
	return NewTimestamp(t)
}
