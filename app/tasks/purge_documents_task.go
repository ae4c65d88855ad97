package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/paper-comb/app/database"
)

type PurgeDocumentsTask struct {
	Task
	MaxAge  time.Duration
	docRepo database.DocumentRepository
}

func NewPurgeDocumentsTask(docRepo database.DocumentRepository, maxAge time.Duration) *PurgeDocumentsTask {
	return &PurgeDocumentsTask{
		Task:    NewTask(TaskTypePurgeDocuments, ""),
		MaxAge:  maxAge,
		docRepo: docRepo,
	}
}

func (t *PurgeDocumentsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deleted, err := t.docRepo.DeleteDocumentsOlderThan(time.Now().Add(-t.MaxAge))
	if err != nil {
		return fmt.Errorf("failed to purge documents: %w", err)
	}

	slog.Debug("Task completed",
		"type", string(t.Type),
		"deleted", deleted,
		"max_age", t.MaxAge.String(),
		"duration", t.GetDuration())

	return nil
}
