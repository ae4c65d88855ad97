package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// FilterFields lists the entry fields a ConfigFilter may match against.
var FilterFields = map[string]bool{
	"title":            true,
	"summary":          true,
	"authors":          true,
	"categories":       true,
	"primary_category": true,
	"journal_ref":      true,
	"comment":          true,
	"doi":              true,
	"id":               true,
}

// FiltersHash fingerprints a filter list so cached pages built under one set
// of filters are not served after the source is reloaded with another. An
// empty list hashes to "".
func FiltersHash(filters []ConfigFilter) string {
	if len(filters) == 0 {
		return ""
	}
	data, err := yaml.Marshal(filters)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns a copy of feed without the entries rejected by filters. The
// feed's pagination metadata is left as the upstream reported it.
func (f *Filterer) Run(feed *Feed, filters []ConfigFilter) *Feed {
	if feed == nil || len(filters) == 0 {
		return feed
	}

	kept := make([]Entry, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if isFiltered, reason := f.applyFilters(entry, filters); isFiltered {
			slog.Debug("Entry filtered", "id", entry.ID, "reason", reason)
			continue
		}
		kept = append(kept, entry)
	}

	filtered := *feed
	filtered.Entries = kept
	return &filtered
}

// Transform adapts Run to a pipeline stage.
func (f *Filterer) Transform(filters []ConfigFilter) Transform {
	return func(feed *Feed) *Feed {
		return f.Run(feed, filters)
	}
}

func (f *Filterer) applyFilters(entry Entry, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(entry, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, "excluded by " + filter.Field + " filter: contains '" + exclude + "'"
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, "excluded by " + filter.Field + " filter: no include rule matched"
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(entry Entry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "summary":
		return entry.Summary
	case "authors":
		names := make([]string, len(entry.Authors))
		for i, author := range entry.Authors {
			names[i] = author.String()
		}
		return strings.Join(names, " ")
	case "categories":
		return strings.Join(entry.Categories, " ")
	case "primary_category":
		return entry.PrimaryCategory
	case "journal_ref":
		return entry.JournalRef
	case "comment":
		return entry.Comment
	case "doi":
		return entry.DOI
	case "id":
		return entry.ID
	default:
		return ""
	}
}
