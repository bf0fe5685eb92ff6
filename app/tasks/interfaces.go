package tasks

import (
	"context"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage the fetch worker pool.
// Example usage:
//
//	scheduler := NewScheduler(fetcher, workerCount, queueSize)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.RunFetch(ctx, url, done)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RunFetch(ctx context.Context, url string, done func(body []byte, err error)) error
}

// FetcherInterface is satisfied by *feed.Fetcher.
type FetcherInterface interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
