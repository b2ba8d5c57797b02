// Package session holds the in-memory state of one overlay session: the
// bound lead number, the language override flag and the live timers.
//
// State is owned by the controller and replaces ambient globals. It is
// created with New and torn down with StopTimers.
package session

import (
	"sync"

	"domsync/internal/task"
)

// Phase is the detection state of the bound lead.
type Phase int

const (
	// Empty means no lead number is known yet.
	Empty Phase = iota
	// Bound means the lead number matches the last render.
	Bound
	// Stale means a poll saw a different lead than the bound one.
	Stale
	// TimedOut means detection gave up while Empty. Only a re-sync clears it.
	TimedOut
)

func (p Phase) String() string {
	switch p {
	case Empty:
		return "empty"
	case Bound:
		return "bound"
	case Stale:
		return "stale"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// State is the session state. All methods are safe for concurrent use.
type State struct {
	mu                 sync.Mutex
	currentLead        string
	languageOverridden bool
	phase              Phase

	detection *task.Task
	monitor   *task.Task
}

// New returns an Empty session with no timers.
func New() *State {
	return &State{phase: Empty}
}

// CurrentLead returns the last committed lead number.
func (s *State) CurrentLead() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLead
}

// Phase returns the current detection phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LanguageOverridden reports whether the operator picked the language by hand
// since the last reset.
func (s *State) LanguageOverridden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.languageOverridden
}

// OverrideLanguage records a manual language choice.
func (s *State) OverrideLanguage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languageOverridden = true
}

// Observe compares a freshly sampled lead number with the bound one.
//
// It returns true exactly when key is non-empty and differs from the bound
// key, meaning a re-sync is required. An empty key never triggers one, since
// the page may simply not have rendered the heading yet. When a key was
// bound, the phase moves to Stale.
func (s *State) Observe(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" || key == s.currentLead {
		return false
	}
	if s.phase == Bound {
		s.phase = Stale
	}
	return true
}

// Commit binds key as the current lead. It must be called only after the
// extraction for key has completed, so a concurrent sample never sees the
// new key before the record that goes with it.
func (s *State) Commit(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentLead = key
	if key == "" {
		s.phase = Empty
		return
	}
	s.phase = Bound
}

// Reset clears the bound key and the language override flag.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentLead = ""
	s.languageOverridden = false
	s.phase = Empty
}

// TimeOut moves an Empty session to TimedOut. It returns true only for the
// call that made the transition.
func (s *State) TimeOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != Empty {
		return false
	}
	s.phase = TimedOut
	return true
}

// ReplaceDetection installs t as the detection task, cancelling the
// previous one. A nil t only cancels.
func (s *State) ReplaceDetection(t *task.Task) {
	s.mu.Lock()
	prev := s.detection
	s.detection = t
	s.mu.Unlock()

	if prev != t {
		prev.Cancel()
	}
}

// ReplaceMonitor installs t as the monitor task, cancelling the previous
// one. A nil t only cancels.
func (s *State) ReplaceMonitor(t *task.Task) {
	s.mu.Lock()
	prev := s.monitor
	s.monitor = t
	s.mu.Unlock()

	if prev != t {
		prev.Cancel()
	}
}

// Detecting reports whether a detection task is installed and still running.
func (s *State) Detecting() bool {
	s.mu.Lock()
	t := s.detection
	s.mu.Unlock()
	return running(t)
}

// Monitoring reports whether a monitor task is installed and still running.
func (s *State) Monitoring() bool {
	s.mu.Lock()
	t := s.monitor
	s.mu.Unlock()
	return running(t)
}

// StopTimers cancels every live timer and returns them so the caller can
// wait for their goroutines outside any lock.
func (s *State) StopTimers() []*task.Task {
	s.mu.Lock()
	var stopped []*task.Task
	for _, t := range []*task.Task{s.detection, s.monitor} {
		if t != nil {
			stopped = append(stopped, t)
		}
	}
	s.detection = nil
	s.monitor = nil
	s.mu.Unlock()

	for _, t := range stopped {
		t.Cancel()
	}
	return stopped
}

func running(t *task.Task) bool {
	if t == nil {
		return false
	}
	select {
	case <-t.Done():
		return false
	default:
		return true
	}
}
