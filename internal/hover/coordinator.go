// Package hover implements hover intent for listing cards: entering a marker opens
// its card at once, leaving closes it only after a short grace period.
package hover

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/clock"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/notify"
)

// DefaultCloseDelay is the grace period between leave and close.
const DefaultCloseDelay = 120 * time.Millisecond

// State is a published snapshot. Active is nil when Idle.
type State struct {
	Active       *listing.Listing
	ClosePending bool
	Seq          uint64
}

// Idle reports whether no card is shown.
func (s State) Idle() bool { return s.Active == nil }

// Recorder receives state transitions; to is "active" or "idle".
type Recorder interface {
	HoverTransition(to string)
}

// Coordinator owns the hover state. It is safe for concurrent use.
type Coordinator struct {
	slot  *clock.Slot
	delay time.Duration
	rec   Recorder

	mu    sync.Mutex
	state State
	// closing is the generation of the armed close timer, zero when none.
	closing uint64

	listeners notify.Listeners[State]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCloseDelay sets the grace period. Non-positive values keep the default.
func WithCloseDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithRecorder reports transitions to r.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.rec = r }
}

// New returns an idle coordinator scheduling on clk; nil means the wall clock.
func New(clk clockwork.Clock, opts ...Option) *Coordinator {
	c := &Coordinator{slot: clock.NewSlot(clk), delay: DefaultCloseDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enter cancels any pending close and shows l immediately.
func (c *Coordinator) Enter(l listing.Listing) {
	c.mu.Lock()
	c.slot.Cancel()
	c.closing = 0
	wasIdle := c.state.Active == nil
	if !wasIdle && c.state.Active.ID == l.ID && !c.state.ClosePending {
		c.mu.Unlock()
		return
	}
	c.state.Active = &l
	c.state.ClosePending = false
	snap := c.publishLocked()
	c.mu.Unlock()

	if wasIdle {
		c.record("active")
	}
	c.listeners.Notify(snap)
}

// Leave arms the close timer. It does nothing while idle.
func (c *Coordinator) Leave() {
	c.mu.Lock()
	if c.state.Active == nil {
		c.mu.Unlock()
		return
	}
	c.closing = c.slot.Arm(c.delay, c.close)
	c.state.ClosePending = true
	snap := c.publishLocked()
	c.mu.Unlock()

	c.listeners.Notify(snap)
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Subscribe registers fn for every published snapshot.
func (c *Coordinator) Subscribe(fn func(State)) (cancel func()) {
	return c.listeners.Add(fn)
}

// close runs when the close timer of generation timer expires. Timers replaced by a
// later Enter or Leave are ignored.
func (c *Coordinator) close(timer uint64) {
	c.mu.Lock()
	if timer != c.closing || c.state.Active == nil || !c.state.ClosePending {
		c.mu.Unlock()
		return
	}
	c.closing = 0
	logrus.Debugf("hover: closing card for #%d", c.state.Active.ID)
	c.state.Active = nil
	c.state.ClosePending = false
	snap := c.publishLocked()
	c.mu.Unlock()

	c.record("idle")
	c.listeners.Notify(snap)
}

func (c *Coordinator) record(to string) {
	if c.rec != nil {
		c.rec.HoverTransition(to)
	}
}

func (c *Coordinator) publishLocked() State {
	c.state.Seq++
	return c.copyLocked()
}

func (c *Coordinator) copyLocked() State {
	s := c.state
	if s.Active != nil {
		l := *s.Active
		s.Active = &l
	}
	return s
}
