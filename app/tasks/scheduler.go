package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-reader/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)
var _ FetcherInterface = (*feed.Fetcher)(nil)

const DefaultQueueSize = 300

type Scheduler struct {
	fetcher     FetcherInterface
	workerCount int
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(fetcher FetcherInterface, workerCount, queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}

	return &Scheduler{
		fetcher:     fetcher,
		workerCount: workerCount,
		taskTimeout: 5 * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	slog.Debug("Fetch workers started", "workers", s.workerCount, "queue_size", cap(s.taskQueue))
}

// Stop cancels running tasks and waits for the workers. Queued tasks are
// dropped without calling back.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// RunFetch queues a download of url. done is called from a worker exactly
// once if the task runs; an error return means it was never queued.
func (s *Scheduler) RunFetch(ctx context.Context, url string, done func(body []byte, err error)) error {
	task := NewFetchFeedTask(ctx, url, s.fetcher, done)
	if err := s.EnqueueTask(task); err != nil {
		return err
	}
	slog.Debug("Fetch task queued", "url", url, "id", task.GetID())
	return nil
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Warn("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "url", task.GetURL(), "duration", task.GetDuration().String(), "error", err)
		return
	}

	slog.Debug("Worker task completed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String())
}
