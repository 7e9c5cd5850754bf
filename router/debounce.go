package router

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces a stream of quote requests so only the most recent one
// runs. Scheduling a task cancels any outstanding task's context and starts a
// fresh delay; a task whose delay elapses only runs if it is still the latest
// scheduled one. This keeps at most one quote in flight per swap intent and
// guarantees the caller never observes the result of a superseded input.
//
// The HTTP quote endpoint resolves synchronously, one quote per request, and
// does not debounce. Debouncer is the entry point for embedding callers such
// as a wallet frontend re-quoting on every amount keystroke; they schedule
// their Resolver calls through it themselves.
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewDebouncer creates a debouncer with the given settle delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule queues task to run after the settle delay, superseding any task
// scheduled earlier. The task receives a context that is cancelled if a newer
// task supersedes it mid-flight.
func (d *Debouncer) Schedule(ctx context.Context, task func(ctx context.Context)) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.cancel != nil {
		d.cancel()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()

		select {
		case <-taskCtx.Done():
			return
		case <-timer.C:
		}

		d.mu.Lock()
		latest := gen == d.gen
		d.mu.Unlock()
		if !latest {
			return
		}
		task(taskCtx)
	}()
}

// Stop cancels any outstanding task. Further Schedule calls are allowed.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
