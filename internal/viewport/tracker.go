// Package viewport tracks the visible map region and turns bursts of settle events
// into one debounced remote sync per pause.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/clock"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/notify"
)

const (
	// DefaultDebounce is the quiet period after the last settle before syncing.
	DefaultDebounce = 400 * time.Millisecond
	defaultErrBuf   = 8
)

// Result labels a finished sync for metrics.
type Result string

const (
	ResultOK       Result = "ok"
	ResultError    Result = "error"
	ResultCanceled Result = "canceled"
)

// Recorder receives tracker events. metrics.Recorder satisfies it.
type Recorder interface {
	DebounceSuperseded()
	SyncFinished(result Result, elapsed time.Duration)
	SyncStale()
}

type nopRecorder struct{}

func (nopRecorder) DebounceSuperseded()                {}
func (nopRecorder) SyncFinished(Result, time.Duration) {}
func (nopRecorder) SyncStale()                         {}

// State is a published snapshot of the tracker.
type State struct {
	// Region is the last settled region; nil until the map first settles.
	Region *geo.Region
	// Loading is raised by motion and lowered when the latest sync completes.
	Loading bool
	// Generation counts settle events.
	Generation uint64
	// Pending reports an armed debounce timer.
	Pending bool
	// LastErr is the failure of the latest completed sync, if any.
	LastErr error
	Seq     uint64
}

// SyncError is a failed sync of the current generation.
type SyncError struct {
	Generation uint64
	Region     geo.Region
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync region %s (generation %d): %v", e.Region, e.Generation, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Tracker owns the viewport sync state. It is safe for concurrent use.
type Tracker struct {
	hook  Hook
	clock clockwork.Clock
	slot  *clock.Slot
	delay time.Duration
	rec   Recorder
	errs  chan *SyncError

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	inflight context.CancelFunc
	// armed is the generation of the debounce timer that may still fire.
	armed  uint64
	closed bool

	listeners notify.Listeners[State]
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.delay = d
		}
	}
}

// WithClock schedules the debounce timer on c.
func WithClock(c clockwork.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithRecorder reports tracker events to r.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) {
		if r != nil {
			t.rec = r
		}
	}
}

// WithErrorBuffer sets the capacity of the Errors channel.
func WithErrorBuffer(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.errs = make(chan *SyncError, n)
		}
	}
}

// New returns a tracker that syncs through hook. A nil hook makes syncs succeed
// immediately. The tracker starts loading, as the map has not settled yet.
func New(hook Hook, opts ...Option) *Tracker {
	if hook == nil {
		hook = HookFunc(func(context.Context, geo.Region) error { return nil })
	}
	t := &Tracker{
		hook:  hook,
		clock: clock.Real(),
		delay: DefaultDebounce,
		rec:   nopRecorder{},
		state: State{Loading: true},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.errs == nil {
		t.errs = make(chan *SyncError, defaultErrBuf)
	}
	t.slot = clock.NewSlot(t.clock)
	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t
}

// MotionStarted raises the loading flag. Timers are left alone.
func (t *Tracker) MotionStarted() {
	t.update(func(s *State) bool {
		if s.Loading {
			return false
		}
		s.Loading = true
		return true
	})
}

// Settled records region immediately and restarts the debounce timer. Only the last
// region of a burst reaches the hook.
func (t *Tracker) Settled(region geo.Region) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	r := region
	t.state.Region = &r
	t.state.Generation++
	gen := t.state.Generation
	if t.slot.Pending() {
		t.rec.DebounceSuperseded()
		logrus.Debugf("viewport: debounce superseded by generation %d", gen)
	}
	t.armed = t.slot.Arm(t.delay, t.fire)
	t.state.Pending = true
	snap := t.publishLocked()
	t.mu.Unlock()

	t.listeners.Notify(snap)
}

// Region returns the last settled region, or nil.
func (t *Tracker) Region() *geo.Region {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Region == nil {
		return nil
	}
	r := *t.state.Region
	return &r
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyLocked()
}

// Subscribe registers fn for every published snapshot.
func (t *Tracker) Subscribe(fn func(State)) (cancel func()) {
	return t.listeners.Add(fn)
}

// Errors delivers failures of current-generation syncs. Delivery never blocks the
// tracker: when the buffer is full the error is only recorded in State.LastErr.
// The channel is closed by Close.
func (t *Tracker) Errors() <-chan *SyncError {
	return t.errs
}

// Close cancels the pending timer and any in-flight sync, waits for it to return and
// closes the Errors channel. Later events are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.slot.Cancel()
	t.armed = 0
	t.state.Pending = false
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
	close(t.errs)
}

// fire runs when the debounce timer of generation timer expires. A timer replaced by a
// later Settled is ignored. The previous in-flight sync, if any, is cancelled; its
// completion is stale either way.
func (t *Tracker) fire(timer uint64) {
	t.mu.Lock()
	if t.closed || timer != t.armed || t.state.Region == nil {
		t.mu.Unlock()
		return
	}
	t.armed = 0
	if t.inflight != nil {
		t.inflight()
	}
	ctx, cancel := context.WithCancel(t.ctx)
	t.inflight = cancel
	gen := t.state.Generation
	region := *t.state.Region
	t.state.Pending = false
	t.wg.Add(1)
	snap := t.publishLocked()
	t.mu.Unlock()

	t.listeners.Notify(snap)
	logrus.Debugf("viewport: syncing %s (generation %d)", region, gen)
	go t.sync(ctx, cancel, gen, region)
}

func (t *Tracker) sync(ctx context.Context, cancel context.CancelFunc, gen uint64, region geo.Region) {
	defer t.wg.Done()
	defer cancel()

	start := t.clock.Now()
	err := t.hook.NotifyRegion(ctx, region)
	elapsed := t.clock.Now().Sub(start)

	t.mu.Lock()
	if t.closed || gen != t.state.Generation || ctx.Err() != nil {
		t.mu.Unlock()
		t.rec.SyncFinished(resultOf(err), elapsed)
		t.rec.SyncStale()
		logrus.Debugf("viewport: ignoring stale completion of generation %d", gen)
		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.Debugf("viewport: stale sync error: %v", err)
		}
		return
	}
	t.inflight = nil
	t.state.Loading = false
	var serr *SyncError
	if err != nil {
		serr = &SyncError{Generation: gen, Region: region, Err: err}
		t.state.LastErr = serr
	} else {
		t.state.LastErr = nil
	}
	snap := t.publishLocked()
	t.mu.Unlock()

	t.rec.SyncFinished(resultOf(err), elapsed)
	if serr != nil {
		logrus.Warnf("viewport: %v", serr)
		select {
		case t.errs <- serr:
		default:
			logrus.Debug("viewport: error channel full, dropping")
		}
	}
	t.listeners.Notify(snap)
}

func resultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, context.Canceled):
		return ResultCanceled
	default:
		return ResultError
	}
}

// update applies fn and publishes when it reports a change.
func (t *Tracker) update(fn func(*State) bool) {
	t.mu.Lock()
	if t.closed || !fn(&t.state) {
		t.mu.Unlock()
		return
	}
	snap := t.publishLocked()
	t.mu.Unlock()
	t.listeners.Notify(snap)
}

func (t *Tracker) publishLocked() State {
	t.state.Seq++
	return t.copyLocked()
}

func (t *Tracker) copyLocked() State {
	s := t.state
	if s.Region != nil {
		r := *s.Region
		s.Region = &r
	}
	return s
}
