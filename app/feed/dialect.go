package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
	"github.com/samber/lo"
	"golang.org/x/net/html/charset"
)

const (
	arxivNamespace      = "http://arxiv.org/schemas/atom"
	atomNamespace       = "http://www.w3.org/2005/Atom"
	openSearchNamespace = "http://a9.com/-/spec/opensearch/1.1/"
	// Older RSS flavour still served by some search endpoints.
	openSearchRSSNamespace = "http://a9.com/-/spec/opensearchrss/1.0/"
)

// Conventional prefixes, used when a feed writes them without declaring them.
var (
	openSearchPrefixes = []string{"opensearch", "os"}
	arxivPrefixes      = []string{"arxiv"}
	atomPrefixes       = []string{"atom"}
)

// newXMLDecoder mirrors the leniency of the gofeed parsers so that the
// side passes over a document accept everything the main parse accepts.
func newXMLDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// namespaceIndex maps a namespace URI to every prefix the document binds it
// to. gofeed keys extension elements by the declared prefix (lower cased)
// unless it knows a canonical one, and it knows none for arXiv or OpenSearch.
type namespaceIndex map[string][]string

func scanNamespaces(data []byte) namespaceIndex {
	index := namespaceIndex{}
	dec := newXMLDecoder(data)
	for {
		// A broken tail keeps whatever was declared before it.
		tok, err := dec.RawToken()
		if err != nil {
			return index
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Space != "xmlns" {
				continue
			}
			uri := strings.TrimSpace(attr.Value)
			index[uri] = append(index[uri], strings.ToLower(strings.TrimSpace(attr.Name.Local)))
		}
	}
}

// prefixes returns the prefixes the document declared for any of the given
// namespace URIs, followed by the conventional ones.
func (n namespaceIndex) prefixes(conventional []string, uris ...string) []string {
	var all []string
	for _, uri := range uris {
		all = append(all, n[uri]...)
	}
	return lo.Uniq(append(all, conventional...))
}

// document is the dialect-neutral result of a field-extraction strategy.
type document struct {
	id            string
	title         string
	link          string
	updatedRaw    string
	updatedParsed *time.Time

	totalResults string
	itemsPerPage string
	startIndex   string

	entries []rawEntry
}

type rawEntry struct {
	id              string
	title           string
	summary         string
	link            string // primary link, used when the entry has no id
	links           []string
	publishedRaw    string
	publishedParsed *time.Time
	updatedRaw      string
	updatedParsed   *time.Time
	doi             string
	journalRef      string
	primaryCategory string
	comment         string
	categories      []string
	authors         []rawAuthor
}

type rawAuthor struct {
	name        string
	affiliation string
}

// dialect extracts a document from one syndication format.
type dialect interface {
	Name() string
	Extract(data []byte) (*document, error)
}

func defaultDialects() map[gofeed.FeedType]dialect {
	return map[gofeed.FeedType]dialect{
		gofeed.FeedTypeAtom: atomDialect{},
		gofeed.FeedTypeRSS:  rssDialect{},
	}
}

type atomDialect struct{}

func (atomDialect) Name() string {
	return "atom"
}

func (atomDialect) Extract(data []byte) (*document, error) {
	parser := &atom.Parser{}
	af, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	ns := scanNamespaces(data)
	openSearch := ns.prefixes(openSearchPrefixes, openSearchNamespace, openSearchRSSNamespace)
	arxiv := ns.prefixes(arxivPrefixes, arxivNamespace)

	doc := &document{
		id:            af.ID,
		title:         af.Title,
		link:          atomPrimaryLink(af.Links),
		updatedRaw:    af.Updated,
		updatedParsed: af.UpdatedParsed,
		totalResults:  extValue(af.Extensions, openSearch, "totalResults", "totalresults"),
		itemsPerPage:  extValue(af.Extensions, openSearch, "itemsPerPage", "itemsperpage"),
		startIndex:    extValue(af.Extensions, openSearch, "startIndex", "startindex"),
	}

	affiliations := atomAffiliations(data)

	doc.entries = make([]rawEntry, 0, len(af.Entries))
	for i, entry := range af.Entries {
		if entry == nil {
			continue
		}

		raw := rawEntry{
			id:              entry.ID,
			title:           entry.Title,
			summary:         entry.Summary,
			link:            atomPrimaryLink(entry.Links),
			publishedRaw:    entry.Published,
			publishedParsed: entry.PublishedParsed,
			updatedRaw:      entry.Updated,
			updatedParsed:   entry.UpdatedParsed,
			doi:             extValue(entry.Extensions, arxiv, "doi"),
			journalRef:      extValue(entry.Extensions, arxiv, "journal_ref"),
			primaryCategory: extAttr(entry.Extensions, arxiv, "primary_category", "term"),
			comment:         extValue(entry.Extensions, arxiv, "comment"),
		}

		if raw.summary == "" && entry.Content != nil {
			raw.summary = entry.Content.Value
		}

		raw.links = lo.FilterMap(entry.Links, func(l *atom.Link, _ int) (string, bool) {
			if l == nil {
				return "", false
			}
			return l.Href, strings.TrimSpace(l.Href) != ""
		})

		raw.categories = lo.FilterMap(entry.Categories, func(c *atom.Category, _ int) (string, bool) {
			if c == nil {
				return "", false
			}
			return c.Term, true
		})

		for j, person := range entry.Authors {
			if person == nil {
				continue
			}
			raw.authors = append(raw.authors, rawAuthor{
				name:        person.Name,
				affiliation: affiliations.at(i, j),
			})
		}

		doc.entries = append(doc.entries, raw)
	}

	return doc, nil
}

// atomPrimaryLink picks the first alternate link, then the first self link,
// then whatever link comes first.
func atomPrimaryLink(links []*atom.Link) string {
	links = lo.Filter(links, func(l *atom.Link, _ int) bool {
		return l != nil && strings.TrimSpace(l.Href) != ""
	})
	if len(links) == 0 {
		return ""
	}

	for _, rel := range []string{"alternate", "self"} {
		for _, l := range links {
			if cmp.Or(l.Rel, "alternate") == rel {
				return l.Href
			}
		}
	}
	return links[0].Href
}

// affiliationIndex holds arxiv:affiliation values by entry and author
// position. gofeed's Atom person model keeps only name, email and uri.
type affiliationIndex [][]string

func (a affiliationIndex) at(entry, author int) string {
	if entry >= len(a) || author >= len(a[entry]) {
		return ""
	}
	return a[entry][author]
}

type affiliationFeed struct {
	Entries []struct {
		Authors []struct {
			Affiliations []string `xml:"http://arxiv.org/schemas/atom affiliation"`
		} `xml:"http://www.w3.org/2005/Atom author"`
	} `xml:"http://www.w3.org/2005/Atom entry"`
}

func atomAffiliations(data []byte) affiliationIndex {
	var overlay affiliationFeed
	if err := newXMLDecoder(data).Decode(&overlay); err != nil {
		return nil
	}

	index := make(affiliationIndex, len(overlay.Entries))
	for i, entry := range overlay.Entries {
		index[i] = make([]string, len(entry.Authors))
		for j, author := range entry.Authors {
			parts := lo.FilterMap(author.Affiliations, func(s string, _ int) (string, bool) {
				s = strings.TrimSpace(s)
				return s, s != ""
			})
			index[i][j] = strings.Join(parts, "; ")
		}
	}
	return index
}

type rssDialect struct{}

func (rssDialect) Name() string {
	return "rss"
}

func (rssDialect) Extract(data []byte) (*document, error) {
	parser := &rss.Parser{}
	rf, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	ns := scanNamespaces(data)
	openSearch := ns.prefixes(openSearchPrefixes, openSearchNamespace, openSearchRSSNamespace)
	arxiv := ns.prefixes(arxivPrefixes, arxivNamespace)
	atomNS := ns.prefixes(atomPrefixes, atomNamespace)

	doc := &document{
		title:        rf.Title,
		link:         rf.Link,
		totalResults: extValue(rf.Extensions, openSearch, "totalResults", "totalresults"),
		itemsPerPage: extValue(rf.Extensions, openSearch, "itemsPerPage", "itemsperpage"),
		startIndex:   extValue(rf.Extensions, openSearch, "startIndex", "startindex"),
	}

	switch {
	case rf.LastBuildDate != "":
		doc.updatedRaw, doc.updatedParsed = rf.LastBuildDate, rf.LastBuildDateParsed
	case rf.PubDate != "":
		doc.updatedRaw, doc.updatedParsed = rf.PubDate, rf.PubDateParsed
	case rf.DublinCoreExt != nil && len(rf.DublinCoreExt.Date) > 0:
		doc.updatedRaw = rf.DublinCoreExt.Date[0]
	}

	if doc.link == "" {
		doc.link = extAttr(rf.Extensions, atomNS, "link", "href")
	}

	doc.entries = make([]rawEntry, 0, len(rf.Items))
	for _, item := range rf.Items {
		if item == nil {
			continue
		}

		raw := rawEntry{
			title:           item.Title,
			summary:         cmp.Or(item.Description, item.Content),
			link:            item.Link,
			publishedRaw:    item.PubDate,
			publishedParsed: item.PubDateParsed,
			updatedRaw:      extValue(item.Extensions, atomNS, "updated"),
			journalRef:      extValue(item.Extensions, arxiv, "journal_ref"),
			primaryCategory: extAttr(item.Extensions, arxiv, "primary_category", "term"),
			comment:         extValue(item.Extensions, arxiv, "comment"),
			doi:             extValue(item.Extensions, arxiv, "doi"),
		}

		if item.GUID != nil {
			raw.id = item.GUID.Value
		}

		if item.Link != "" {
			raw.links = append(raw.links, item.Link)
		}
		if item.Enclosure != nil && strings.TrimSpace(item.Enclosure.URL) != "" {
			raw.links = append(raw.links, item.Enclosure.URL)
		}

		raw.categories = lo.FilterMap(item.Categories, func(c *rss.Category, _ int) (string, bool) {
			if c == nil {
				return "", false
			}
			return c.Value, true
		})

		if dc := item.DublinCoreExt; dc != nil {
			if raw.publishedRaw == "" && len(dc.Date) > 0 {
				raw.publishedRaw = dc.Date[0]
			}
			if raw.doi == "" {
				raw.doi = doiFromIdentifiers(dc.Identifier)
			}
		}

		raw.authors = rssAuthors(item)

		doc.entries = append(doc.entries, raw)
	}

	return doc, nil
}

// rssAuthors reads <author> ("email (Name)" or a bare name) and falls back to
// dc:creator, which arXiv fills with a comma separated name list.
func rssAuthors(item *rss.Item) []rawAuthor {
	if author := strings.TrimSpace(item.Author); author != "" {
		return []rawAuthor{{name: rssAuthorName(author)}}
	}

	if item.DublinCoreExt == nil {
		return nil
	}

	var authors []rawAuthor
	for _, creator := range item.DublinCoreExt.Creator {
		for _, name := range strings.Split(creator, ",") {
			authors = append(authors, rawAuthor{name: name})
		}
	}
	return authors
}

func rssAuthorName(author string) string {
	start := strings.Index(author, "(")
	end := strings.LastIndex(author, ")")
	if start >= 0 && end > start {
		return author[start+1 : end]
	}
	if strings.Contains(author, "@") {
		return ""
	}
	return author
}

func doiFromIdentifiers(identifiers []string) string {
	for _, id := range identifiers {
		id = strings.TrimSpace(id)
		lower := strings.ToLower(id)
		switch {
		case strings.HasPrefix(lower, "doi:"):
			return strings.TrimSpace(id[len("doi:"):])
		case strings.HasPrefix(lower, "10."):
			return id
		}
	}
	return ""
}

func extValue(exts ext.Extensions, prefixes []string, names ...string) string {
	if e, ok := findExtension(exts, prefixes, names...); ok {
		return e.Value
	}
	return ""
}

func extAttr(exts ext.Extensions, prefixes []string, name, attr string) string {
	if e, ok := findExtension(exts, prefixes, name); ok {
		return e.Attrs[attr]
	}
	return ""
}

func findExtension(exts ext.Extensions, prefixes []string, names ...string) (ext.Extension, bool) {
	for _, prefix := range prefixes {
		for _, name := range names {
			if values := exts[prefix][name]; len(values) > 0 {
				return values[0], true
			}
		}
	}
	return ext.Extension{}, false
}
