//
//
package fetchcache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval replaces a non-positive Poll interval.
const DefaultPollInterval = 5 * time.Second

// pollErrorBuffer is the capacity of PollHandle.Errors.
const pollErrorBuffer = 16

// PollHandle controls a running poll loop.
type PollHandle struct {
	cancelled atomic.Bool
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	errs      chan error
}

// Poll calls fetch immediately and then once per interval, measured from the
// end of the previous call, passing each successful result to onResult.
// Failures are logged and sent to Errors; the loop keeps going.
//
// The loop ends when the handle is cancelled or ctx ends. A fetch already
// running when Cancel is called completes and its result is still delivered.
func Poll(ctx context.Context, fetch FetchFunc, interval time.Duration, onResult func(any)) *PollHandle {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	h := &PollHandle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
		errs: make(chan error, pollErrorBuffer),
	}

	go h.run(ctx, fetch, interval, onResult)
	return h
}

func (h *PollHandle) run(ctx context.Context, fetch FetchFunc, interval time.Duration, onResult func(any)) {
	defer close(h.done)

	timer := time.NewTimer(interval)
	timer.Stop()
	defer timer.Stop()

	for {
		if h.cancelled.Load() || ctx.Err() != nil {
			return
		}

		value, err := fetch(ctx)
		if err != nil {
			log.Printf("fetchcache: poll fetch failed: %v", err)
			h.report(err)
		} else if onResult != nil {
			onResult(value)
		}

		timer.Reset(interval)
		select {
		case <-timer.C:
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// report never blocks; errors beyond the buffer are dropped.
func (h *PollHandle) report(err error) {
	select {
	case h.errs <- err:
	default:
	}
}

// Cancel stops the loop. Safe to call from any goroutine, any number of times.
func (h *PollHandle) Cancel() {
	h.cancelled.Store(true)
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Cancelled reports whether Cancel has been called.
func (h *PollHandle) Cancelled() bool {
	return h.cancelled.Load()
}

// Done is closed when the loop has exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Errors returns recent fetch failures.
func (h *PollHandle) Errors() <-chan error {
	return h.errs
}
