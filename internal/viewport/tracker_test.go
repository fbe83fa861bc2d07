package viewport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/viewport/mocks"
)

//nolint:gochecknoglobals // shared fixtures.
var (
	r1 = geo.Region{North: 19.3, South: 19.1, East: 73.1, West: 72.9}
	r2 = geo.Region{North: 19.1, South: 18.9, East: 72.9, West: 72.7}
)

type call struct {
	ctx    context.Context
	region geo.Region
	done   chan error
}

// blockingHook hands every call to the test and waits for it to be released.
type blockingHook struct {
	calls chan call
}

func newBlockingHook() blockingHook {
	return blockingHook{calls: make(chan call, 4)}
}

func (h blockingHook) NotifyRegion(ctx context.Context, region geo.Region) error {
	c := call{ctx: ctx, region: region, done: make(chan error, 1)}
	h.calls <- c
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h blockingHook) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-h.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("hook was not called")
		return call{}
	}
}

type countingRecorder struct {
	superseded atomic.Int64
	stale      atomic.Int64
	mu         sync.Mutex
	results    []Result
}

func (r *countingRecorder) DebounceSuperseded() { r.superseded.Add(1) }
func (r *countingRecorder) SyncStale()          { r.stale.Add(1) }
func (r *countingRecorder) SyncFinished(res Result, _ time.Duration) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func newTracker(t *testing.T, hook Hook, opts ...Option) (*Tracker, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	tr := New(hook, append([]Option{WithClock(fc)}, opts...)...)
	t.Cleanup(tr.Close)
	return tr, fc
}

// waitTimers blocks until fc holds exactly n pending timers.
func waitTimers(t *testing.T, fc *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, n))
}

func TestInitialState(t *testing.T) {
	tr, _ := newTracker(t, nil)
	s := tr.Snapshot()
	assert.True(t, s.Loading)
	assert.Nil(t, s.Region)
	assert.Nil(t, tr.Region())
	assert.Zero(t, s.Generation)
}

func TestSettledRecordsRegionImmediately(t *testing.T) {
	hook := newBlockingHook()
	tr, fc := newTracker(t, hook)

	tr.Settled(r1)
	got := tr.Region()
	require.NotNil(t, got)
	assert.Equal(t, r1, *got)
	assert.True(t, tr.Snapshot().Pending)
	waitTimers(t, fc, 1)

	select {
	case <-hook.calls:
		t.Fatal("hook called before the debounce elapsed")
	default:
	}
}

func TestBurstOfSettlesSyncsOnceWithLastRegion(t *testing.T) {
	ctrl := gomock.NewController(t)
	hook := mocks.NewMockHook(ctrl)
	hook.EXPECT().NotifyRegion(gomock.Any(), r2).Return(nil).Times(1)

	rec := &countingRecorder{}
	tr, fc := newTracker(t, hook, WithRecorder(rec))

	tr.MotionStarted()
	tr.Settled(r1)
	fc.Advance(200 * time.Millisecond)
	tr.Settled(r2)
	waitTimers(t, fc, 1)

	fc.Advance(399 * time.Millisecond)
	assert.True(t, tr.Snapshot().Pending)
	fc.Advance(time.Millisecond)

	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int64(1), rec.superseded.Load())
	assert.Equal(t, uint64(2), tr.Snapshot().Generation)
}

func TestMotionStartedRaisesLoadingOnly(t *testing.T) {
	tr, fc := newTracker(t, nil)
	tr.Settled(r1)
	fc.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)

	tr.MotionStarted()
	s := tr.Snapshot()
	assert.True(t, s.Loading)
	assert.False(t, s.Pending)
	waitTimers(t, fc, 0)
}

func TestStaleCompletionDoesNotClearLoading(t *testing.T) {
	hook := newBlockingHook()
	rec := &countingRecorder{}
	tr, fc := newTracker(t, hook, WithRecorder(rec))

	tr.Settled(r1)
	fc.Advance(DefaultDebounce)
	first := hook.next(t)
	assert.Equal(t, r1, first.region)

	// A new cycle starts while the first sync is outstanding.
	tr.MotionStarted()
	tr.Settled(r2)
	first.done <- nil

	require.Eventually(t, func() bool { return rec.stale.Load() == 1 }, 2*time.Second, time.Millisecond)
	assert.True(t, tr.Snapshot().Loading, "stale completion must not lower loading")

	fc.Advance(DefaultDebounce)
	second := hook.next(t)
	assert.Equal(t, r2, second.region)
	second.done <- nil

	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)
}

func TestNewerFireCancelsInflightSync(t *testing.T) {
	hook := newBlockingHook()
	rec := &countingRecorder{}
	tr, fc := newTracker(t, hook, WithRecorder(rec))

	tr.Settled(r1)
	fc.Advance(DefaultDebounce)
	first := hook.next(t)

	tr.Settled(r2)
	fc.Advance(DefaultDebounce)
	second := hook.next(t)

	select {
	case <-first.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("superseded sync was not cancelled")
	}
	require.Eventually(t, func() bool { return rec.stale.Load() == 1 }, 2*time.Second, time.Millisecond)
	assert.True(t, tr.Snapshot().Loading)

	second.done <- nil
	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)
	assert.NoError(t, tr.Snapshot().LastErr)

	rec.mu.Lock()
	assert.Contains(t, rec.results, ResultCanceled)
	assert.Contains(t, rec.results, ResultOK)
	rec.mu.Unlock()
}

func TestSyncFailureIsObservable(t *testing.T) {
	boom := errors.New("backend down")
	tr, fc := newTracker(t, HookFunc(func(context.Context, geo.Region) error { return boom }))

	tr.Settled(r1)
	fc.Advance(DefaultDebounce)

	select {
	case serr := <-tr.Errors():
		require.NotNil(t, serr)
		assert.ErrorIs(t, serr, boom)
		assert.Equal(t, uint64(1), serr.Generation)
		assert.Equal(t, r1, serr.Region)
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}

	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)
	var serr *SyncError
	require.ErrorAs(t, tr.Snapshot().LastErr, &serr)
}

func TestFullErrorBufferNeverBlocks(t *testing.T) {
	tr, fc := newTracker(t, HookFunc(func(context.Context, geo.Region) error { return errors.New("x") }), WithErrorBuffer(1))

	for i := range 3 {
		tr.Settled(r1)
		fc.Advance(DefaultDebounce)
		gen := uint64(i + 1)
		require.Eventually(t, func() bool {
			s := tr.Snapshot()
			return s.Generation == gen && !s.Loading && s.LastErr != nil
		}, 2*time.Second, time.Millisecond)
		tr.MotionStarted()
	}
	assert.Len(t, tr.Errors(), 1)
}

func TestSubscribersSeeEveryTransition(t *testing.T) {
	tr, fc := newTracker(t, nil)

	var mu sync.Mutex
	var seen []State
	tr.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	tr.MotionStarted() // already loading, no change
	tr.Settled(r1)
	fc.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.True(t, seen[0].Pending)
	assert.False(t, seen[1].Pending)
	assert.True(t, seen[1].Loading)
	assert.False(t, seen[2].Loading)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Seq, seen[i-1].Seq)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	hook := newBlockingHook()
	fc := clockwork.NewFakeClock()
	tr := New(hook, WithClock(fc))

	tr.Settled(r1)
	fc.Advance(DefaultDebounce)
	inflight := hook.next(t)
	tr.Settled(r2)

	tr.Close()
	assert.ErrorIs(t, inflight.ctx.Err(), context.Canceled)
	waitTimers(t, fc, 0)

	_, open := <-tr.Errors()
	assert.False(t, open)

	tr.Settled(r1)
	tr.MotionStarted()
	assert.Equal(t, uint64(2), tr.Snapshot().Generation)
	tr.Close()
}

func TestWithDebounce(t *testing.T) {
	ctrl := gomock.NewController(t)
	hook := mocks.NewMockHook(ctrl)
	hook.EXPECT().NotifyRegion(gomock.Any(), r1).Return(nil)

	tr, fc := newTracker(t, hook, WithDebounce(50*time.Millisecond))
	tr.Settled(r1)
	fc.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)
}

func TestSupersededTimerDoesNotSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	hook := mocks.NewMockHook(ctrl)
	hook.EXPECT().NotifyRegion(gomock.Any(), r2).Return(nil).Times(1)

	tr, fc := newTracker(t, hook)
	tr.Settled(r1)
	tr.mu.Lock()
	stale := tr.armed
	tr.mu.Unlock()

	tr.Settled(r2)
	// The first timer already fired and now reaches the tracker after the second
	// Settled re-armed the debounce.
	tr.fire(stale)

	s := tr.Snapshot()
	assert.True(t, s.Pending, "the newer timer is still armed")
	assert.True(t, s.Loading)

	fc.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return !tr.Snapshot().Loading }, 2*time.Second, time.Millisecond)
	assert.False(t, tr.Snapshot().Pending)
}
