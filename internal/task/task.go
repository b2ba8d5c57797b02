// Package task provides cancellable background tasks and the polling loops
// the session core runs on them.
//
// A Task wraps one goroutine with its own context. Cancel never blocks, so a
// task may cancel itself or a sibling while holding a lock the sibling
// needs. Wait blocks until the goroutine has returned.
//
// Time is read through a clockwork.Clock so tests can drive the loops with
// a fake clock.
package task

import (
	"context"
	"sync"
	"time"

	"domsync/internal/errors"

	"github.com/jonboulle/clockwork"
)

// Func is the body of a task. It must return once ctx is done.
type Func func(ctx context.Context) error

// Task is a cancellable unit of background work.
//
// All methods are safe on a nil *Task and behave as for a task that has
// already finished.
type Task struct {
	name string
	fn   Func

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	stopped bool
	err     error
	done    chan struct{}
}

// New creates a task that runs fn once started.
func New(name string, fn Func) *Task {
	return &Task{
		name: name,
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Name returns the name the task was created with.
func (t *Task) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Start runs the task in a new goroutine under a child of parent.
// Starting twice, or after Cancel, does nothing. Returns t.
func (t *Task) Start(parent context.Context) *Task {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return t
	}
	t.started = true

	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel

	go func() {
		err := t.fn(ctx)
		cancel()

		t.mu.Lock()
		t.err = err
		t.stopped = true
		t.mu.Unlock()
		close(t.done)
	}()
	return t
}

// Cancel asks the task to stop and returns immediately.
// A task cancelled before Start never runs.
func (t *Task) Cancel() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if !t.started {
		t.stopped = true
		t.err = context.Canceled
		close(t.done)
		return
	}
	t.cancel()
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	if t == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return t.done
}

// Wait blocks until the task has finished and returns its error.
func (t *Task) Wait() error {
	if t == nil {
		return nil
	}
	<-t.done
	return t.Err()
}

// Err returns the task's result, or nil while it is still running.
func (t *Task) Err() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// CheckFunc is one poll attempt. It returns true when the awaited
// condition holds; an error aborts the poll.
type CheckFunc func(ctx context.Context) (bool, error)

// Poll runs check immediately and then once per interval until it reports
// success, returns an error, or ceiling has elapsed since the first check.
//
// Returns:
//   - nil once check reported true
//   - the error check returned
//   - *errors.TimeoutError naming operation when the ceiling elapsed
//   - ctx.Err() when ctx was cancelled first
func Poll(ctx context.Context, clock clockwork.Clock, operation string, interval, ceiling time.Duration, check CheckFunc) error {
	start := clock.Now()

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if clock.Since(start) >= ceiling {
			return errors.NewTimeoutError(operation, ceiling)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

// Every calls fn once per interval until ctx is done. The first call
// happens after one interval. Always returns ctx.Err().
func Every(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(ctx context.Context)) error {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn(ctx)
		}
	}
}

// Sleep waits for d on clock, returning early with ctx.Err() when ctx is
// cancelled.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
