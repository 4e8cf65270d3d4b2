package timing

import (
	"sync"
	"time"
)

// DebounceSlot holds at most one pending delayed action. Scheduling a new
// action cancels the previous one, so a burst of calls closer together than
// the delay produces a single run of the last action.
type DebounceSlot struct {
	mu      sync.Mutex
	pending *DelayedTask[struct{}]
	action  func()
	gen     uint64
}

// Schedule replaces any pending action with action, to run after delay.
func (s *DebounceSlot) Schedule(action func(), delay time.Duration) *DelayedTask[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.Cancel()
	}

	s.gen++
	gen := s.gen
	task := Dispatch(func() (struct{}, error) {
		s.release(gen)
		action()
		return struct{}{}, nil
	}, delay)

	s.pending = task
	s.action = action
	return task
}

// release clears the slot if gen is still the current schedule.
func (s *DebounceSlot) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.pending = nil
		s.action = nil
	}
}

// Cancel drops the pending action, if any, and reports whether one was dropped.
func (s *DebounceSlot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false
	}
	canceled := s.pending.Cancel()
	s.pending = nil
	s.action = nil
	s.gen++
	return canceled
}

// Pending reports whether an action is waiting for its timer.
func (s *DebounceSlot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush runs the pending action immediately on the calling goroutine. If the
// action already started, Flush waits for it instead. It reports whether
// Flush itself ran the action.
func (s *DebounceSlot) Flush() bool {
	s.mu.Lock()
	task, action := s.pending, s.action
	if task == nil {
		s.mu.Unlock()
		return false
	}
	canceled := task.Cancel()
	s.pending = nil
	s.action = nil
	s.gen++
	s.mu.Unlock()

	if !canceled {
		<-task.Done()
		return false
	}
	action()
	return true
}
