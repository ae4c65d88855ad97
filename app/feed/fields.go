package feed

import (
	"slices"
	"strings"
)

// Dotted paths exposed to templates. Existing templates depend on these names.
const (
	PathFeedTitle        = "feed.title"
	PathFeedLink         = "feed.link"
	PathFeedUpdated      = "feed.updated"
	PathFeedTotalResults = "feed.total_results"
	PathFeedItemsPerPage = "feed.items_per_page"
	PathFeedStartIndex   = "feed.start_index"
	PathFeedEntries      = "feed.entries"

	PathEntryTitle           = "entry.title"
	PathEntryID              = "entry.id"
	PathEntryPublished       = "entry.published"
	PathEntryUpdated         = "entry.updated"
	PathEntrySummary         = "entry.summary"
	PathEntryDOI             = "entry.doi"
	PathEntryJournalRef      = "entry.journal_ref"
	PathEntryPrimaryCategory = "entry.primary_category"
	PathEntryComment         = "entry.comment"
	PathEntryCategories      = "entry.categories"
	PathEntryLinks           = "entry.links"
	PathEntryAuthors         = "entry.authors"

	PathAuthorName        = "entry.authors[].name"
	PathAuthorAffiliation = "entry.authors[].affiliation"

	CategorySeparator = ", "
)

var (
	FeedPaths = []string{
		PathFeedTitle, PathFeedLink, PathFeedUpdated, PathFeedTotalResults,
		PathFeedItemsPerPage, PathFeedStartIndex, PathFeedEntries,
	}
	EntryPaths = []string{
		PathEntryTitle, PathEntryID, PathEntryPublished, PathEntryUpdated,
		PathEntrySummary, PathEntryDOI, PathEntryJournalRef, PathEntryPrimaryCategory,
		PathEntryComment, PathEntryCategories, PathEntryLinks, PathEntryAuthors,
	}
	AuthorPaths = []string{PathAuthorName, PathAuthorAffiliation}
)

// childPrefixes maps a list-valued path to the prefix its elements use.
var childPrefixes = map[string]string{
	PathFeedEntries:  "entry.",
	PathEntryAuthors: "entry.authors[].",
}

// Fields maps dotted template paths to display values.
type Fields map[string]any

func FeedFields(f *Feed) Fields {
	entries := make([]Fields, len(f.Entries))
	for i, e := range f.Entries {
		entries[i] = EntryFields(e)
	}

	return Fields{
		PathFeedTitle:        f.Title,
		PathFeedLink:         f.Link,
		PathFeedUpdated:      f.Updated.String(),
		PathFeedTotalResults: f.TotalResults,
		PathFeedItemsPerPage: f.ItemsPerPage,
		PathFeedStartIndex:   f.StartIndex,
		PathFeedEntries:      entries,
	}
}

func EntryFields(e Entry) Fields {
	authors := make([]Fields, len(e.Authors))
	for i, a := range e.Authors {
		authors[i] = AuthorFields(a)
	}

	return Fields{
		PathEntryTitle:           e.Title,
		PathEntryID:              e.ID,
		PathEntryPublished:       e.Published.String(),
		PathEntryUpdated:         e.Updated.String(),
		PathEntrySummary:         e.Summary,
		PathEntryDOI:             e.DOI,
		PathEntryJournalRef:      e.JournalRef,
		PathEntryPrimaryCategory: e.PrimaryCategory,
		PathEntryComment:         e.Comment,
		PathEntryCategories:      strings.Join(e.Categories, CategorySeparator),
		PathEntryLinks:           slices.Clone(e.Links),
		PathEntryAuthors:         authors,
	}
}

func AuthorFields(a Author) Fields {
	return Fields{
		PathAuthorName:        a.Name,
		PathAuthorAffiliation: a.Affiliation,
	}
}

// View strips prefix from every path and turns nested field lists into
// lists of maps, giving templates `.feed.title` and `$entry.title`.
func (f Fields) View(prefix string) map[string]any {
	view := make(map[string]any, len(f))
	for path, value := range f {
		key := strings.TrimPrefix(path, prefix)

		children, ok := value.([]Fields)
		if !ok {
			view[key] = value
			continue
		}

		childPrefix := childPrefixes[path]
		list := make([]map[string]any, len(children))
		for i, child := range children {
			list[i] = child.View(childPrefix)
		}
		view[key] = list
	}
	return view
}
