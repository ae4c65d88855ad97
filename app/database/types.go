package database

import (
	"time"
)

type Document struct {
	ID           string // Database UUID
	Template     string
	CacheKey     string // ContentHash of a raw feed or SourceKey of a source page
	Body         string
	EntryCount   int
	TotalResults int
	CreatedAt    time.Time
}
