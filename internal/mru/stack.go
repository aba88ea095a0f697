// Package mru keeps the most-recently-used ordering of applications fed by
// a focus.Tracker.
package mru

import (
	"sync"

	"focusmru/pkg/focus"
)

// Entry is one application in the stack.
type Entry struct {
	focus.ActivationRecord
	Confidence focus.Confidence `json:"confidence"`

	// live is set once the pid has been observed activating
	live bool
}

// Stack orders applications most recent first, one entry per pid. Live
// activations always rank above prepopulated guesses.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
}

// New creates an empty Stack.
func New() *Stack {
	return &Stack{}
}

// Activate moves rec.PID to the front as a KNOWN entry.
func (s *Stack) Activate(rec focus.ActivationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(rec.PID)
	s.entries = append([]Entry{{ActivationRecord: rec, Confidence: focus.Known, live: true}}, s.entries...)
}

// Seed merges one prepopulation entry and reports whether the stack
// changed. A KNOWN entry goes right after the live activations; a GUESS
// entry is appended when its pid is absent. A pid placed by a live
// activation is never moved, so a snapshot taken before that activation
// cannot demote it.
func (s *Stack) Seed(entry focus.PrepopulationEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(entry.PID); i >= 0 {
		if s.entries[i].live || !entry.IsKnown() {
			return false
		}
		s.removeLocked(entry.PID)
	}

	e := Entry{ActivationRecord: entry.ActivationRecord, Confidence: entry.Confidence}
	if !entry.IsKnown() {
		s.entries = append(s.entries, e)
		return true
	}

	at := 0
	for at < len(s.entries) && s.entries[at].live {
		at++
	}
	s.entries = append(s.entries, Entry{})
	copy(s.entries[at+1:], s.entries[at:])
	s.entries[at] = e
	return true
}

// Terminate removes every entry for pid and reports whether any existed.
func (s *Stack) Terminate(pid int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(pid)
}

// Prune drops the entries whose process is no longer alive and returns how
// many were removed.
func (s *Stack) Prune(alive func(pid int32) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if alive(e.PID) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = Entry{}
	}
	s.entries = kept
	return removed
}

// Snapshot returns a copy of the stack, most recent first.
func (s *Stack) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Front returns the most recent entry.
func (s *Stack) Front() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) indexLocked(pid int32) int {
	for i, e := range s.entries {
		if e.PID == pid {
			return i
		}
	}
	return -1
}

func (s *Stack) removeLocked(pid int32) bool {
	kept := s.entries[:0]
	found := false
	for _, e := range s.entries {
		if e.PID == pid {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if found {
		s.entries[len(s.entries)-1] = Entry{}
	}
	s.entries = kept
	return found
}
