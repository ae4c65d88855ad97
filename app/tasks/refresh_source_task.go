package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
)

// RefreshSourceTask renders the first page of a source so the document cache
// holds a fresh copy before anyone asks for it.
type RefreshSourceTask struct {
	Task
	FeedConfig *feed.Config
	service    SourceRendererInterface
}

func NewRefreshSourceTask(feedName string, feedConfig *feed.Config, service SourceRendererInterface) *RefreshSourceTask {
	return &RefreshSourceTask{
		Task:       NewTask(TaskTypeRefreshSource, feedName),
		FeedConfig: feedConfig,
		service:    service,
	}
}

func (t *RefreshSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	res, err := t.service.RenderSource(ctx, t.FeedConfig, fetcher.Page{}, "", true)
	if err != nil {
		return fmt.Errorf("failed to refresh source: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"feed", t.FeedName,
		"template", res.Template,
		"entries", res.Entries,
		"total_results", res.TotalResults,
		"duration", t.GetDuration())

	return nil
}
