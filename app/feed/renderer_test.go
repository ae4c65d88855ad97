package feed

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

func renderTestFeed() *Feed {
	return &Feed{
		Title:        "cs.CL updates",
		Link:         "https://arxiv.org/list/cs.CL/new",
		Updated:      NewTimestamp(time.Date(2024, 1, 16, 5, 0, 0, 0, time.UTC)),
		TotalResults: 120,
		ItemsPerPage: 2,
		StartIndex:   10,
		Entries: []Entry{
			{
				ID:              "http://arxiv.org/abs/2401.00001v1",
				Title:           "First <Paper>",
				Summary:         "Abstract one.",
				Published:       NewTimestamp(time.Date(2024, 1, 15, 18, 59, 0, 0, time.UTC)),
				DOI:             "10.1000/xyz123",
				PrimaryCategory: "cs.CL",
				Categories:      []string{"cs.CL", "cs.LG"},
				Links:           []string{"http://arxiv.org/abs/2401.00001v1", "http://arxiv.org/pdf/2401.00001v1"},
				Authors: []Author{
					{Name: "Ada Lovelace", Affiliation: "Analytical Engine Society"},
					{Name: "Alan Turing"},
				},
			},
			{
				ID:         "http://arxiv.org/abs/2401.00002v1",
				Title:      "Second Paper",
				Categories: []string{},
				Links:      []string{},
				Authors:    []Author{},
			},
		},
	}
}

func renderDocument(t *testing.T, feed *Feed, templateName string) *goquery.Document {
	t.Helper()

	body, err := NewRenderer(NewTemplateStore("")).Run(feed, templateName)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to parse rendered HTML: %v", err)
	}
	return doc
}

func texts(sel *goquery.Selection) []string {
	return sel.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
}

func TestRendererDefaultTemplate(t *testing.T) {
	doc := renderDocument(t, renderTestFeed(), DefaultTemplate)

	if got := strings.TrimSpace(doc.Find("h1.feed-title").Text()); got != "cs.CL updates" {
		t.Errorf("Expected feed title, got: %s", got)
	}
	if got, _ := doc.Find("h1.feed-title a").Attr("href"); got != "https://arxiv.org/list/cs.CL/new" {
		t.Errorf("Expected feed link, got: %s", got)
	}
	if got := doc.Find(".feed-updated time").Text(); got != "2024-01-16 05:00 UTC" {
		t.Errorf("Expected updated timestamp, got: %s", got)
	}

	pagination := []string{
		doc.Find(".start-index").Text(),
		doc.Find(".items-per-page").Text(),
		doc.Find(".total-results").Text(),
	}
	if diff := cmp.Diff([]string{"10", "2", "120"}, pagination); diff != "" {
		t.Errorf("Pagination mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"First <Paper>", "Second Paper"}, texts(doc.Find("article.entry .entry-title"))); diff != "" {
		t.Errorf("Entry titles mismatch (-want +got):\n%s", diff)
	}

	first := doc.Find("article.entry").First()
	authors := texts(first.Find(".entry-authors .author"))
	if diff := cmp.Diff([]string{"Ada Lovelace (Analytical Engine Society)", "Alan Turing"}, authors); diff != "" {
		t.Errorf("Authors mismatch (-want +got):\n%s", diff)
	}
	if got := first.Find(".entry-categories").Text(); got != "cs.CL, cs.LG" {
		t.Errorf("Expected joined categories, got: %s", got)
	}
	if got := first.Find(".entry-published").Text(); got != "2024-01-15 18:59 UTC" {
		t.Errorf("Expected published timestamp, got: %s", got)
	}
	if got := first.Find(".entry-links a").Length(); got != 2 {
		t.Errorf("Expected 2 links, got: %d", got)
	}

	second := doc.Find("article.entry").Eq(1)
	if got := second.Find(".entry-published").Text(); got != UnknownTimePlaceholder {
		t.Errorf("Expected placeholder for unknown date, got: %s", got)
	}
	if got := second.Find(".entry-doi").Text(); got != "" {
		t.Errorf("Expected empty DOI, got: %s", got)
	}
	if got := second.Find(".entry-authors .author").Length(); got != 0 {
		t.Errorf("Expected no authors, got: %d", got)
	}
}

func TestRendererCompactTemplate(t *testing.T) {
	feed := renderTestFeed()
	feed.Entries[0].JournalRef = "J. Comput. Ling. 12"
	feed.Entries[0].Comment = "10 pages"
	doc := renderDocument(t, feed, "compact")

	if got, _ := doc.Find("a.feed-link").Attr("href"); got != "https://arxiv.org/list/cs.CL/new" {
		t.Errorf("Expected feed link, got: %s", got)
	}

	first := doc.Find("li.entry").Eq(0)
	if got := first.Find(".entry-doi").Text(); got != "doi:10.1000/xyz123" {
		t.Errorf("Expected DOI, got: %s", got)
	}
	if got := first.Find(".entry-journal-ref").Text(); got != "J. Comput. Ling. 12" {
		t.Errorf("Expected journal reference, got: %s", got)
	}
	if got := first.Find(".entry-comment").Text(); got != "10 pages" {
		t.Errorf("Expected comment, got: %s", got)
	}
	if got := first.Find(".entry-summary").Text(); !strings.Contains(got, "Abstract one.") {
		t.Errorf("Expected summary, got: %s", got)
	}
	hrefs := first.Find("a.entry-link").Map(func(_ int, s *goquery.Selection) string {
		href, _ := s.Attr("href")
		return href
	})
	if diff := cmp.Diff(feed.Entries[0].Links, hrefs); diff != "" {
		t.Errorf("Links mismatch (-want +got):\n%s", diff)
	}

	second := doc.Find("li.entry").Eq(1)
	if got := second.Find(".entry-doi, .entry-journal-ref, .entry-comment, .entry-summary, a.entry-link").Length(); got != 0 {
		t.Errorf("Expected empty optional fields to be omitted, got %d elements", got)
	}
}

func TestRendererEscapesHTML(t *testing.T) {
	body, err := NewRenderer(NewTemplateStore("")).Run(renderTestFeed(), "compact")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(body, "<Paper>") {
		t.Error("Expected entry title to be escaped")
	}
	if !strings.Contains(body, "First &lt;Paper&gt;") {
		t.Errorf("Expected escaped title in output, got: %s", body)
	}
}

func TestRendererEmptyFeed(t *testing.T) {
	doc := renderDocument(t, &Feed{Title: "Empty", Entries: []Entry{}}, DefaultTemplate)

	if got := doc.Find("article.entry").Length(); got != 0 {
		t.Errorf("Expected no entries, got: %d", got)
	}
	if got := doc.Find(".feed-updated time").Text(); got != UnknownTimePlaceholder {
		t.Errorf("Expected placeholder for unknown updated, got: %s", got)
	}
}

func TestRendererUnknownKey(t *testing.T) {
	tests := map[string]string{
		"feed key":  `{{.feed.title}} {{.feed.abstract}}`,
		"entry key": `{{range $e := .feed.entries}}{{$e.title}} {{$e.abstract}}{{end}}`,
	}

	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			store := NewTemplateStoreFS(fstest.MapFS{"bad.html.tmpl": {Data: []byte(source)}})

			body, err := NewRenderer(store).Run(renderTestFeed(), "bad")

			var renderErr *RenderError
			if !errors.As(err, &renderErr) {
				t.Fatalf("Expected RenderError, got: %v", err)
			}
			if body != "" {
				t.Errorf("Expected no partial output, got: %s", body)
			}
		})
	}
}

func TestRendererTemplateNotFound(t *testing.T) {
	_, err := NewRenderer(NewTemplateStore("")).Run(renderTestFeed(), "missing")

	var notFound *TemplateNotFoundError
	if !errors.As(err, &notFound) || notFound.Name != "missing" {
		t.Errorf("Expected TemplateNotFoundError for 'missing', got: %v", err)
	}
}

func TestRendererNilFeed(t *testing.T) {
	_, err := NewRenderer(NewTemplateStore("")).Run(nil, DefaultTemplate)

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Errorf("Expected RenderError, got: %v", err)
	}
}
