// Package clock holds the single-pending timer shared by the viewport tracker and the
// hover coordinator. Time itself comes from clockwork, so tests drive timers with a
// clockwork.FakeClock.
package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Real returns the wall clock.
func Real() clockwork.Clock { //nolint:ireturn
	return clockwork.NewRealClock()
}

// Slot holds at most one pending timer. Arming a slot cancels whatever was pending,
// and a callback that already fired but lost the race with a newer Arm is discarded.
//
// The slot lock is released before the callback runs, so a callback may still race a
// newer Arm made by its owner. Callbacks receive their generation; owners compare it
// with the one Arm returned to them, under their own lock.
type Slot struct {
	clock clockwork.Clock

	mu    sync.Mutex
	gen   uint64
	timer clockwork.Timer
}

// NewSlot returns an empty slot scheduled on c. A nil clock means the wall clock.
func NewSlot(c clockwork.Clock) *Slot {
	if c == nil {
		c = Real()
	}
	return &Slot{clock: c}
}

// Arm cancels any pending timer and schedules f after d. It returns the generation of
// the new timer, which increases with every Arm and Cancel, and passes the same value
// to f.
func (s *Slot) Arm(d time.Duration, f func(gen uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		f(gen)
	})
	return gen
}

// Cancel stops the pending timer, if any. It reports whether a timer was pending.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.timer != nil
	s.stopLocked()
	s.gen++
	return pending
}

// Pending reports whether a timer is armed and has not fired.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Slot) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
