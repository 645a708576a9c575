package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every store call made by a Client.
const DefaultTimeout = 5 * time.Second

// Client isolates callers from store failures. Appends are written in the
// background, one at a time in dispatch order, and never retried; history
// reads fail open to an empty slice.
type Client struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	fetches singleflight.Group
	pending sync.WaitGroup

	mu       sync.Mutex
	queue    []appendJob
	draining bool
}

type appendJob struct {
	rec    Record
	result chan error
}

// NewClient wraps store. A nil logger discards output and a non-positive
// timeout falls back to DefaultTimeout.
func NewClient(store Store, logger *slog.Logger, timeout time.Duration) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		store:   store,
		logger:  logger,
		timeout: timeout,
	}
}

// Append queues rec for the store and returns at once. Records reach the
// store in the order Append was called. The returned channel yields the store
// error, if any, and is then closed; callers are free to ignore it.
func (c *Client) Append(rec Record) <-chan error {
	job := appendJob{rec: rec, result: make(chan error, 1)}

	c.pending.Add(1)
	c.mu.Lock()
	c.queue = append(c.queue, job)
	if !c.draining {
		c.draining = true
		go c.drain()
	}
	c.mu.Unlock()

	return job.result
}

// drain writes queued records until the queue is empty. At most one drain
// runs at a time.
func (c *Client) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.mu.Unlock()
			return
		}
		job := c.queue[0]
		c.queue[0] = appendJob{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.write(job)
	}
}

func (c *Client) write(job appendJob) {
	defer c.pending.Done()
	defer close(job.result)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.store.Append(ctx, job.rec); err != nil {
		c.logger.Warn("event append failed", "kind", job.rec.Kind, "error", err)
		job.result <- err
		return
	}
	c.logger.Debug("event appended", "kind", job.rec.Kind)
}

// ListAll returns every record the store holds. Concurrent calls share one
// store read. On error or timeout it logs and returns an empty, non-nil slice.
func (c *Client) ListAll(ctx context.Context) []Record {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := c.fetches.DoChan("list", func() (any, error) {
		storeCtx, storeCancel := context.WithTimeout(context.Background(), c.timeout)
		defer storeCancel()
		return c.store.List(storeCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("history fetch failed; replaying empty history", "error", res.Err)
			return []Record{}
		}
		records, _ := res.Val.([]Record)
		out := make([]Record, len(records))
		copy(out, records)
		return out
	case <-ctx.Done():
		c.logger.Warn("history fetch abandoned; replaying empty history", "error", ctx.Err())
		return []Record{}
	}
}

// Wait blocks until every dispatched append has finished or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
