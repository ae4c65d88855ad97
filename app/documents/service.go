package documents

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/paper-comb/app/database"
	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
	"github.com/lysyi3m/paper-comb/app/metrics"
	"golang.org/x/sync/singleflight"
)

// FetchError reports that a configured source could not be downloaded.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch source %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Result struct {
	Body         string
	Template     string
	Entries      int
	TotalResults int
	Cached       bool
}

// Service builds documents from raw feeds or configured sources, consulting
// the document cache when one is configured. Concurrent requests for the same
// document share a single build.
type Service struct {
	pipeline PipelineInterface
	fetcher  FetcherInterface
	repo     database.DocumentRepository
	filterer *feed.Filterer
	group    singleflight.Group
}

// NewService accepts a nil repo, which disables caching.
func NewService(pipeline PipelineInterface, fetcher FetcherInterface, repo database.DocumentRepository) *Service {
	return &Service{
		pipeline: pipeline,
		fetcher:  fetcher,
		repo:     repo,
		filterer: feed.NewFilterer(),
	}
}

// Render builds a document from a raw feed. Cached documents are keyed by the
// content hash of raw, so they never go stale.
func (s *Service) Render(raw []byte, templateName string) (*Result, error) {
	templateName = cmp.Or(templateName, feed.DefaultTemplate)
	key := database.ContentHash(raw)

	if res := s.lookup(templateName, key, 0); res != nil {
		return res, nil
	}

	return s.do(context.Background(), templateName, key, func() ([]byte, error) {
		return raw, nil
	})
}

// RenderSource fetches one page of a configured source and builds a document
// from it. A cached page younger than the source refresh interval is served
// unless refresh is set.
func (s *Service) RenderSource(ctx context.Context, source *feed.Config, page fetcher.Page, templateName string, refresh bool) (*Result, error) {
	templateName = cmp.Or(templateName, source.Settings.Template, feed.DefaultTemplate)
	if page.MaxResults <= 0 {
		page.MaxResults = cmp.Or(source.Settings.PageSize, feed.DefaultPageSize)
	}
	key := database.SourceKey(source.Name, page.Start, page.MaxResults, feed.FiltersHash(source.Filters))

	if !refresh {
		maxAge := time.Duration(source.Settings.RefreshInterval) * time.Second
		if res := s.lookup(templateName, key, maxAge); res != nil {
			return res, nil
		}
	}

	return s.do(ctx, templateName, key, func() ([]byte, error) {
		// The fetch is shared with every caller joining this build, so only
		// the source timeout bounds it, not the first caller's lifetime.
		timeout := time.Duration(cmp.Or(source.Settings.Timeout, feed.DefaultTimeout)) * time.Second
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		raw, err := s.fetcher.Fetch(fetchCtx, source.URL, page)
		if err != nil {
			return nil, &FetchError{Source: source.Name, Err: err}
		}
		return raw, nil
	}, s.filterer.Transform(source.Filters))
}

// do runs load and the build at most once per template and key at a time.
// A caller whose ctx ends stops waiting; the build carries on for the others.
func (s *Service) do(ctx context.Context, templateName, key string, load func() ([]byte, error), transforms ...feed.Transform) (*Result, error) {
	ch := s.group.DoChan(templateName+"|"+key, func() (interface{}, error) {
		raw, err := load()
		if err != nil {
			recordBuild(templateName, err)
			return nil, err
		}
		return s.build(raw, templateName, key, transforms...)
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return nil, r.Err
	}

	if r.Shared {
		slog.Debug("Document build shared", "template", templateName, "key", key)
	}

	res := *r.Val.(*Result)
	return &res, nil
}

func (s *Service) build(raw []byte, templateName, key string, transforms ...feed.Transform) (*Result, error) {
	start := time.Now()

	doc, err := s.pipeline.Build(raw, templateName, transforms...)
	if err != nil {
		recordBuild(templateName, err)
		return nil, err
	}

	recordBuild(templateName, nil)
	metrics.FeedEntries.Observe(float64(len(doc.Feed.Entries)))

	res := &Result{
		Body:         doc.Body,
		Template:     templateName,
		Entries:      len(doc.Feed.Entries),
		TotalResults: doc.Feed.TotalResults,
	}

	slog.Debug("Document built",
		"template", templateName,
		"entries", res.Entries,
		"total_results", res.TotalResults,
		"duration", time.Since(start))

	if s.repo != nil {
		_, err := s.repo.SaveDocument(database.Document{
			Template:     templateName,
			CacheKey:     key,
			Body:         res.Body,
			EntryCount:   res.Entries,
			TotalResults: res.TotalResults,
		})
		if err != nil {
			slog.Warn("Failed to cache document", "template", templateName, "key", key, "error", err)
		}
	}

	return res, nil
}

// lookup returns nil on a miss. A zero maxAge never expires.
func (s *Service) lookup(templateName, key string, maxAge time.Duration) *Result {
	if s.repo == nil {
		return nil
	}

	doc, err := s.repo.GetDocument(templateName, key)
	if err != nil {
		slog.Warn("Document cache lookup failed", "template", templateName, "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil
	}
	if doc == nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if maxAge > 0 && time.Since(doc.CreatedAt) > maxAge {
		metrics.CacheLookups.WithLabelValues("stale").Inc()
		return nil
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &Result{
		Body:         doc.Body,
		Template:     doc.Template,
		Entries:      doc.EntryCount,
		TotalResults: doc.TotalResults,
		Cached:       true,
	}
}

func recordBuild(templateName string, err error) {
	result := "ok"
	if err != nil {
		result = resultLabel(err)
	}
	// Unknown names come straight from requests; keep them out of label values.
	if result == "template_not_found" {
		templateName = "unknown"
	}
	metrics.DocumentsBuilt.WithLabelValues(templateName, result).Inc()
}

func resultLabel(err error) string {
	var malformed *feed.MalformedFeedError
	var notFound *feed.TemplateNotFoundError
	var renderErr *feed.RenderError
	var fetchErr *FetchError

	switch {
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &notFound):
		return "template_not_found"
	case errors.As(err, &renderErr):
		return "render_error"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	default:
		return "error"
	}
}
