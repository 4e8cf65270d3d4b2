// Package timing provides cancelable delayed execution and a debounce slot
// built on it.
package timing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCanceled is the outcome of a task canceled before it ran. Callers
// awaiting a task should treat it as a signal, not a failure.
var ErrCanceled = errors.New("delayed task canceled")

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskFinished
	taskCanceled
)

// DelayedTask runs a function once after a delay unless canceled first.
// Exactly one outcome is recorded: fn's value, fn's error, or ErrCanceled.
type DelayedTask[T any] struct {
	mu    sync.Mutex
	state taskState
	timer *time.Timer
	done  chan struct{}
	value T
	err   error
}

// Dispatch schedules fn to run after delay.
func Dispatch[T any](fn func() (T, error), delay time.Duration) *DelayedTask[T] {
	t := &DelayedTask[T]{done: make(chan struct{})}

	// Hold the lock until the timer is stored so an immediate fire cannot
	// observe a half-built task.
	t.mu.Lock()
	t.timer = time.AfterFunc(delay, func() { t.run(fn) })
	t.mu.Unlock()

	return t
}

func (t *DelayedTask[T]) run(fn func() (T, error)) {
	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return
	}
	t.state = taskRunning
	t.mu.Unlock()

	value, err := invoke(fn)

	t.mu.Lock()
	t.value = value
	t.err = err
	t.state = taskFinished
	close(t.done)
	t.mu.Unlock()
}

func invoke[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delayed task panicked: %v", r)
		}
	}()
	return fn()
}

// Cancel prevents a pending task from running and resolves it with
// ErrCanceled. It returns true only for the call that canceled the task;
// a task that already started or finished is left alone.
func (t *DelayedTask[T]) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != taskPending {
		return false
	}
	t.timer.Stop()
	t.state = taskCanceled
	t.err = ErrCanceled
	close(t.done)
	return true
}

// Done is closed once the task has an outcome.
func (t *DelayedTask[T]) Done() <-chan struct{} {
	return t.done
}

// Canceled reports whether the task was canceled.
func (t *DelayedTask[T]) Canceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskCanceled
}

// Await blocks until the task has an outcome or ctx is done.
func (t *DelayedTask[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitDelayed waits for task and swallows cancellation: ok is false and err
// is nil when the task was canceled.
func AwaitDelayed[T any](ctx context.Context, task *DelayedTask[T]) (value T, ok bool, err error) {
	value, err = task.Await(ctx)
	if errors.Is(err, ErrCanceled) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

// Delay sleeps for d or until ctx is done.
func Delay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
