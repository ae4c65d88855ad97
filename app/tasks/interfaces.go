package tasks

import (
	"context"

	"github.com/lysyi3m/paper-comb/app/documents"
	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
)

// TaskSchedulerInterface defines the interface for background task scheduling.
// Example usage:
//
//	scheduler := NewScheduler(configCache, service, docRepo, options)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewPurgeDocumentsTask(docRepo, ttl))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type SourceRendererInterface interface {
	RenderSource(ctx context.Context, source *feed.Config, page fetcher.Page, templateName string, refresh bool) (*documents.Result, error)
}

var _ SourceRendererInterface = (*documents.Service)(nil)
