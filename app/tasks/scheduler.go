package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/paper-comb/app/database"
	"github.com/lysyi3m/paper-comb/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type SchedulerOptions struct {
	Interval    time.Duration
	WorkerCount int
	CacheTTL    time.Duration
	QueueSize   int
}

type Scheduler struct {
	configCache *feed.ConfigCache
	service     SourceRendererInterface
	docRepo     database.DocumentRepository
	interval    time.Duration
	workerCount int
	cacheTTL    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu          sync.Mutex
	nextRefresh map[string]time.Time
}

func NewScheduler(configCache *feed.ConfigCache, service SourceRendererInterface,
	docRepo database.DocumentRepository, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 300
	}

	return &Scheduler{
		configCache: configCache,
		service:     service,
		docRepo:     docRepo,
		interval:    opts.Interval,
		workerCount: opts.WorkerCount,
		cacheTTL:    opts.CacheTTL,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, opts.QueueSize),
		nextRefresh: make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks(time.Now())

		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				s.enqueueTasks(now)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks(now time.Time) {
	feedConfigs := s.configCache.GetEnabledConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
	}

	for _, feedConfig := range feedConfigs {
		if !s.dueForRefresh(feedConfig, now) {
			slog.Debug("Feed not due for refresh yet", "feed", feedConfig.Name)
			continue
		}

		refreshTask := NewRefreshSourceTask(feedConfig.Name, feedConfig, s.service)
		if err := s.EnqueueTask(refreshTask); err != nil {
			slog.Warn("Failed to enqueue RefreshSourceTask", "feed", feedConfig.Name, "error", err)
		}
	}

	if s.docRepo != nil && s.cacheTTL > 0 {
		if err := s.EnqueueTask(NewPurgeDocumentsTask(s.docRepo, s.cacheTTL)); err != nil {
			slog.Warn("Failed to enqueue PurgeDocumentsTask", "error", err)
		}
	}
}

// dueForRefresh reports whether the source should be refreshed at now and,
// if so, books its next refresh.
func (s *Scheduler) dueForRefresh(feedConfig *feed.Config, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next, ok := s.nextRefresh[feedConfig.Name]; ok && next.After(now) {
		return false
	}

	s.nextRefresh[feedConfig.Name] = now.Add(time.Duration(feedConfig.Settings.RefreshInterval) * time.Second)
	return true
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
				case <-time.After(retryDelay):
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
