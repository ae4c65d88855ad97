package feed

import (
	"fmt"
	"slices"
	"strings"
)

func NewFeed(p FeedParams) (Feed, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Feed{}, fmt.Errorf("invalid feed: %w", ErrMissingTitle)
	}

	return Feed{
		ID:           strings.TrimSpace(p.ID),
		Title:        title,
		Link:         strings.TrimSpace(p.Link),
		Updated:      p.Updated,
		TotalResults: max(p.TotalResults, 0),
		ItemsPerPage: max(p.ItemsPerPage, 0),
		StartIndex:   max(p.StartIndex, 0),
		Entries:      cloneEntries(p.Entries),
	}, nil
}

func NewEntry(p EntryParams) (Entry, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Entry{}, fmt.Errorf("invalid entry %q: %w", p.ID, ErrMissingTitle)
	}

	return Entry{
		ID:              strings.TrimSpace(p.ID),
		Title:           title,
		Summary:         strings.TrimSpace(p.Summary),
		Published:       p.Published,
		Updated:         p.Updated,
		DOI:             strings.TrimSpace(p.DOI),
		JournalRef:      strings.TrimSpace(p.JournalRef),
		PrimaryCategory: strings.TrimSpace(p.PrimaryCategory),
		Comment:         strings.TrimSpace(p.Comment),
		Categories:      nonNil(slices.Clone(p.Categories)),
		Links:           nonNil(slices.Clone(p.Links)),
		Authors:         nonNil(slices.Clone(p.Authors)),
	}, nil
}

func NewAuthor(name, affiliation string) (Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Author{}, ErrMissingAuthorName
	}
	return Author{Name: name, Affiliation: strings.TrimSpace(affiliation)}, nil
}

// String renders the author as "name (affiliation)", or just the name when
// there is no affiliation.
func (a Author) String() string {
	if a.Affiliation == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Affiliation)
}

func cloneEntries(entries []Entry) []Entry {
	cloned := make([]Entry, len(entries))
	for i, e := range entries {
		e.Categories = nonNil(slices.Clone(e.Categories))
		e.Links = nonNil(slices.Clone(e.Links))
		e.Authors = nonNil(slices.Clone(e.Authors))
		cloned[i] = e
	}
	return cloned
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
