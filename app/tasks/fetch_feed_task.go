package tasks

import (
	"context"
	"log/slog"
)

// FetchFeedTask downloads one feed document on behalf of a session and hands
// the outcome to the session's callback. Parsing stays with the caller.
type FetchFeedTask struct {
	Task
	fetcher    FetcherInterface
	requestCtx context.Context
	done       func(body []byte, err error)
}

func NewFetchFeedTask(requestCtx context.Context, url string, fetcher FetcherInterface, done func(body []byte, err error)) *FetchFeedTask {
	return &FetchFeedTask{
		Task:       NewTask(TaskTypeFetchFeed, url),
		fetcher:    fetcher,
		requestCtx: requestCtx,
		done:       done,
	}
}

func (t *FetchFeedTask) Execute(ctx context.Context) error {
	// The requesting session may go away while the task sits in the queue.
	if err := t.requestCtx.Err(); err != nil {
		slog.Debug("Fetch requester gone, skipping", "url", t.URL, "id", t.ID)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(t.requestCtx, cancel)
	defer stop()

	body, err := t.fetcher.Fetch(ctx, t.URL)
	if err != nil {
		t.done(nil, err)
		return err
	}

	slog.Debug("Feed fetched", "url", t.URL, "bytes", len(body), "duration", t.GetDuration().String())
	t.done(body, nil)
	return nil
}
