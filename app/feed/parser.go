package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
)

type Parser struct {
	dialects map[gofeed.FeedType]dialect
}

func NewParser() *Parser {
	return &Parser{
		dialects: defaultDialects(),
	}
}

// Run converts raw Atom or RSS bytes into a Feed. Missing optional fields
// degrade to their defaults; only unrecognizable input is an error.
func (p *Parser) Run(data []byte) (*Feed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedFeedError{Reason: "empty document"}
	}

	feedType := gofeed.DetectFeedType(bytes.NewReader(data))
	d, ok := p.dialects[feedType]
	if !ok {
		return nil, &MalformedFeedError{Reason: "unrecognized feed format"}
	}

	doc, err := d.Extract(data)
	if err != nil {
		return nil, &MalformedFeedError{Reason: fmt.Sprintf("invalid %s document", d.Name()), Err: err}
	}

	feed, err := p.buildFeed(doc)
	if err != nil {
		return nil, &MalformedFeedError{Reason: "feed has no title", Err: err}
	}

	return feed, nil
}

func (p *Parser) RunString(data string) (*Feed, error) {
	return p.Run([]byte(data))
}

func (p *Parser) buildFeed(doc *document) (*Feed, error) {
	base := parseBase(doc.link)

	entries := make([]Entry, 0, len(doc.entries))
	for _, raw := range doc.entries {
		if entry, ok := p.buildEntry(raw, base); ok {
			entries = append(entries, entry)
		}
	}

	feed, err := NewFeed(FeedParams{
		ID:           doc.id,
		Title:        collapseWhitespace(doc.title),
		Link:         doc.link,
		Updated:      parseTimestamp(doc.updatedParsed, doc.updatedRaw),
		TotalResults: parseCount(doc.totalResults),
		ItemsPerPage: parseCount(doc.itemsPerPage),
		StartIndex:   parseCount(doc.startIndex),
		Entries:      entries,
	})
	if err != nil {
		return nil, err
	}

	return &feed, nil
}

// buildEntry reports false for an entry that has no title, id or link to
// identify it.
func (p *Parser) buildEntry(raw rawEntry, base *url.URL) (Entry, bool) {
	links := resolveLinks(base, raw.links)
	id := cmp.Or(strings.TrimSpace(raw.id), resolveLink(base, raw.link))

	authors := lo.FilterMap(raw.authors, func(a rawAuthor, _ int) (Author, bool) {
		author, err := NewAuthor(a.name, a.affiliation)
		return author, err == nil
	})

	categories := lo.FilterMap(raw.categories, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	})

	entry, err := NewEntry(EntryParams{
		ID:              id,
		Title:           cmp.Or(collapseWhitespace(raw.title), id),
		Summary:         raw.summary,
		Published:       parseTimestamp(raw.publishedParsed, raw.publishedRaw),
		Updated:         parseTimestamp(raw.updatedParsed, raw.updatedRaw),
		DOI:             raw.doi,
		JournalRef:      collapseWhitespace(raw.journalRef),
		PrimaryCategory: raw.primaryCategory,
		Comment:         collapseWhitespace(raw.comment),
		Categories:      categories,
		Links:           links,
		Authors:         authors,
	})
	if err != nil {
		return Entry{}, false
	}

	return entry, true
}

func parseBase(link string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || !u.IsAbs() {
		return nil
	}
	return u
}

func resolveLinks(base *url.URL, hrefs []string) []string {
	return lo.FilterMap(hrefs, func(href string, _ int) (string, bool) {
		resolved := resolveLink(base, href)
		return resolved, resolved != ""
	})
}

// resolveLink resolves href against base. Relative links stay relative when
// the feed has no absolute base link.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	return u.String()
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
