package documents

import (
	"context"

	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
)

type PipelineInterface interface {
	Build(raw []byte, templateName string, transforms ...feed.Transform) (*feed.Document, error)
}

var _ PipelineInterface = (*feed.Pipeline)(nil)

type FetcherInterface interface {
	Fetch(ctx context.Context, feedURL string, page fetcher.Page) ([]byte, error)
}

var _ FetcherInterface = (*fetcher.Fetcher)(nil)
