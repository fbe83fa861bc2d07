package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/propmap/internal/filter"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/hover"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/viewport"
)

// fixtures: three listings around central Mumbai and one in Pune.
func fixtures() []listing.Listing {
	return []listing.Listing{
		{ID: 1, Name: "Bandra Heights", Type: listing.Residential, BHK: listing.Num(3), Price: listing.Num(42000000), PriceCr: listing.Num(4.2), Lat: 19.0596, Lng: 72.8295},
		{ID: 2, Name: "Andheri Studio", Type: listing.Residential, BHK: listing.Num(1), Price: listing.Num(9500000), PriceCr: listing.Num(0.95), Lat: 19.1136, Lng: 72.8697},
		{ID: 3, Name: "Lower Parel Offices", Type: listing.Commercial, Price: listing.Num(55000000), PriceCr: listing.Num(5.5), Lat: 18.9953, Lng: 72.8258},
		{ID: 4, Name: "Koregaon Park Residency", Type: listing.Residential, BHK: listing.Num(3), PriceCr: listing.Num(2.1), Lat: 18.5362, Lng: 73.8939},
	}
}

type harness struct {
	m       Model
	clk     *clockwork.FakeClock
	store   *listing.Store
	panel   *filter.Panel
	tracker *viewport.Tracker
	hover   *hover.Coordinator
	synced  chan geo.Region
	changed [sourceCount]chan struct{}
}

func newHarness(t *testing.T, mutate ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		clk:    clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0)),
		panel:  filter.NewPanel(),
		synced: make(chan geo.Region, 16),
	}
	h.store = listing.NewStore(listing.WithClock(h.clk))
	h.store.AppendListings(fixtures())
	h.tracker = viewport.New(viewport.HookFunc(func(_ context.Context, r geo.Region) error {
		h.synced <- r
		return nil
	}), viewport.WithClock(h.clk))
	t.Cleanup(h.tracker.Close)
	h.hover = hover.New(h.clk)

	deps := Deps{Store: h.store, Panel: h.panel, Tracker: h.tracker, Hover: h.hover, Offline: true}
	for _, fn := range mutate {
		fn(&deps)
	}
	var unsubscribe func()
	h.changed, unsubscribe = subscribe(deps)
	t.Cleanup(unsubscribe)
	h.m = NewModel(context.Background(), deps, h.changed)
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		switch k {
		case "enter":
			h.send(tea.KeyMsg{Type: tea.KeyEnter})
		case "esc":
			h.send(tea.KeyMsg{Type: tea.KeyEsc})
		case "tab":
			h.send(tea.KeyMsg{Type: tea.KeyTab})
		case "space":
			h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		default:
			h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
}

// drain delivers pending bridge signals the way the program loop would.
func (h *harness) drain() {
	for src := range sourceCount {
		select {
		case <-h.changed[src]:
			h.send(changedMsg{src: src})
		default:
		}
	}
}

func names(ls []listing.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Name
	}
	return out
}

func TestNewModel_Camera(t *testing.T) {
	h := newHarness(t)
	mumbai, _ := geo.City("Mumbai")
	assert.Equal(t, mumbai.Point, h.m.Camera().Center)
	assert.Equal(t, geo.DefaultZoom, h.m.Camera().Zoom)

	h = newHarness(t, func(d *Deps) { d.City = "pune" })
	pune, _ := geo.City("Pune")
	assert.Equal(t, pune.Point, h.m.Camera().Center)

	h = newHarness(t, func(d *Deps) { d.City = "Atlantis" })
	assert.Equal(t, mumbai.Point, h.m.Camera().Center)
}

func TestModel_VisibleWithoutRegionIsEverything(t *testing.T) {
	h := newHarness(t)
	assert.Len(t, h.m.Visible(), 4)
	assert.True(t, h.m.sync.Loading)
}

func TestModel_SettledRegionNarrowsVisible(t *testing.T) {
	h := newHarness(t)
	h.tracker.Settled(h.m.Camera().Bounds())
	h.drain()

	assert.Equal(t, []string{"Bandra Heights", "Andheri Studio", "Lower Parel Offices"}, names(h.m.Visible()))
}

func TestModel_FilterPanel(t *testing.T) {
	h := newHarness(t)
	h.press("f")
	require.Equal(t, ModeFilters, h.m.Mode())

	target := -1
	for i, row := range h.m.filterRows {
		if row.dim == filter.Type && row.opt.Value == "commercial" {
			target = i
		}
	}
	require.GreaterOrEqual(t, target, 0)
	for range target {
		h.press("j")
	}
	h.press("space")

	assert.True(t, h.panel.Snapshot().Has(filter.Type, "commercial"))
	h.drain()
	assert.Equal(t, []string{"Lower Parel Offices"}, names(h.m.Visible()))
	assert.Contains(t, h.m.View(), "[x] Commercial")

	h.press("x")
	h.drain()
	assert.True(t, h.panel.Snapshot().Empty())
	assert.Len(t, h.m.Visible(), 4)

	h.press("esc")
	assert.Equal(t, ModeBrowse, h.m.Mode())
}

func TestModel_FilterCursorStaysInRange(t *testing.T) {
	h := newHarness(t)
	h.press("f", "k", "k")
	assert.Equal(t, 0, h.m.filterCursor)
	for range len(h.m.filterRows) + 3 {
		h.press("j")
	}
	assert.Equal(t, len(h.m.filterRows)-1, h.m.filterCursor)
}

func TestModel_MovingBetweenMarkersKeepsCardOpen(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var states []hover.State
	cancel := h.hover.Subscribe(func(s hover.State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	defer cancel()

	h.press("j")
	require.NotNil(t, h.hover.Snapshot().Active)
	assert.Equal(t, "Andheri Studio", h.hover.Snapshot().Active.Name)

	h.press("j")
	assert.Equal(t, "Lower Parel Offices", h.hover.Snapshot().Active.Name)
	assert.False(t, h.hover.Snapshot().ClosePending)

	mu.Lock()
	for _, s := range states {
		assert.False(t, s.Idle(), "card closed between adjacent markers")
	}
	mu.Unlock()

	h.press("tab")
	assert.True(t, h.hover.Snapshot().ClosePending)
	h.clk.Advance(hover.DefaultCloseDelay)
	require.Eventually(t, func() bool { return h.hover.Snapshot().Idle() }, 2*time.Second, time.Millisecond)
}

func TestModel_HoverCardRendersPrice(t *testing.T) {
	h := newHarness(t)
	h.press("j")
	h.drain()

	view := h.m.View()
	assert.Contains(t, view, "Andheri Studio")
	assert.Contains(t, view, "₹ 9500000")
}

func TestModel_PanAndZoomSettle(t *testing.T) {
	h := newHarness(t)
	before := h.m.Camera()

	h.press("L")
	after := h.m.Camera()
	assert.Greater(t, after.Center.Lng, before.Center.Lng)

	snap := h.tracker.Snapshot()
	assert.True(t, snap.Loading)
	assert.True(t, snap.Pending)
	require.NotNil(t, snap.Region)
	assert.True(t, snap.Region.Equal(after.Bounds()))

	h.press("+")
	assert.Equal(t, geo.DefaultZoom+1, h.m.Camera().Zoom)

	h.clk.Advance(viewport.DefaultDebounce)
	select {
	case r := <-h.synced:
		assert.True(t, r.Equal(h.m.Camera().Bounds()), "only the last region of a burst is synced")
	case <-time.After(5 * time.Second):
		t.Fatal("sync hook not called")
	}
	assert.Empty(t, h.synced)
}

func TestModel_PanNorth(t *testing.T) {
	h := newHarness(t)
	before := h.m.Camera().Center
	h.press("K")
	assert.Greater(t, h.m.Camera().Center.Lat, before.Lat)
	h.press("J", "J")
	assert.Less(t, h.m.Camera().Center.Lat, before.Lat)
}

func TestModel_CycleCity(t *testing.T) {
	var picked []string
	h := newHarness(t, func(d *Deps) { d.OnCity = func(name string) { picked = append(picked, name) } })
	start := h.m.cityIdx
	h.press("c")
	next := geo.Cities[(start+1)%len(geo.Cities)]
	assert.Equal(t, next.Point, h.m.Camera().Center)
	assert.Equal(t, geo.DefaultZoom, h.m.Camera().Zoom)
	assert.Contains(t, h.m.notice, next.Name)
	assert.Equal(t, []string{next.Name}, picked)
}

func TestModel_SearchPansAndZooms(t *testing.T) {
	h := newHarness(t)
	h.press("/")
	require.Equal(t, ModeSearch, h.m.Mode())

	h.press("q", "Pune")
	assert.Equal(t, ModeSearch, h.m.Mode(), "typing q while searching does not quit")
	for range len("qPune") {
		h.send(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	h.press("Pune")

	cmd := h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ModeBrowse, h.m.Mode())

	msg := cmd()
	res, ok := msg.(geocodeMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	h.send(res)

	pune, _ := geo.City("Pune")
	assert.Equal(t, pune.Point, h.m.Camera().Center)
	assert.Equal(t, geo.SearchZoom, h.m.Camera().Zoom)
	assert.True(t, h.tracker.Snapshot().Loading)
}

func TestModel_SearchFailureIsANotice(t *testing.T) {
	h := newHarness(t)
	before := h.m.Camera()
	h.send(geocodeMsg{query: "", err: geo.ErrEmptyQuery})
	assert.Equal(t, before, h.m.Camera())
	assert.Contains(t, h.m.View(), "empty search query")
}

func TestModel_FormAppendsDraft(t *testing.T) {
	h := newHarness(t)
	h.press("n")
	require.Equal(t, ModeForm, h.m.Mode())

	h.press("Test Villa", "enter", "plot", "enter", "enter", "enter", "abc", "enter", "enter", "enter")
	require.Equal(t, fieldLng, h.m.form.focus)
	h.press("enter")

	assert.Equal(t, ModeBrowse, h.m.Mode())
	require.Equal(t, 5, h.store.Len())
	got := h.store.All()[4]
	assert.Equal(t, "Test Villa", got.Name)
	assert.Equal(t, listing.Plot, got.Type)
	assert.Equal(t, listing.Num(0), got.BHK, "blank fields are zero")
	assert.True(t, got.Price.IsNaN())
	assert.InDelta(t, h.m.Camera().Center.Lat, got.Lat, 1e-5)
	assert.InDelta(t, h.m.Camera().Center.Lng, got.Lng, 1e-5)

	h.drain()
	assert.Contains(t, names(h.m.Visible()), "Test Villa")
}

func TestModel_FormEscapeDiscards(t *testing.T) {
	h := newHarness(t)
	h.press("n", "Nope", "esc")
	assert.Equal(t, ModeBrowse, h.m.Mode())
	assert.Equal(t, 4, h.store.Len())
}

func TestModel_SyncErrorStatus(t *testing.T) {
	h := newHarness(t)
	r := h.m.Camera().Bounds()
	h.send(syncErrMsg{err: &viewport.SyncError{Generation: 1, Region: r, Err: errors.New("boom")}})

	view := h.m.View()
	assert.Contains(t, view, "sync failed")
	assert.Contains(t, view, "boom")
}

func TestModel_Quit(t *testing.T) {
	h := newHarness(t)
	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "Shutting down...\n", h.m.View())
}

func TestModel_GaugeTracksVisible(t *testing.T) {
	g := &gauge{}
	h := newHarness(t, func(d *Deps) { d.Gauge = g })
	assert.Equal(t, 4, g.n)

	h.panel.Toggle(filter.Type, "commercial")
	h.drain()
	assert.Equal(t, 1, g.n)
}

type gauge struct{ n int }

func (g *gauge) SetVisible(n int) { g.n = n }

func TestCell(t *testing.T) {
	r := geo.Region{North: 20, South: 10, East: 80, West: 70}

	row, col, ok := cell(r, 20, 70)
	require.True(t, ok)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	row, col, ok = cell(r, 10, 80)
	require.True(t, ok)
	assert.Equal(t, mapRows-1, row)
	assert.Equal(t, mapCols-1, col)

	_, _, ok = cell(r, 21, 75)
	assert.False(t, ok)

	wrap := geo.Region{North: 10, South: -10, East: -170, West: 170}
	_, col, ok = cell(wrap, 0, 170)
	require.True(t, ok)
	assert.Equal(t, 0, col)
	_, col, ok = cell(wrap, 0, -170)
	require.True(t, ok)
	assert.Equal(t, mapCols-1, col)
	_, _, ok = cell(wrap, 0, 0)
	assert.False(t, ok)
}

func TestRenderCard_Idle(t *testing.T) {
	assert.Contains(t, renderCard(hover.State{}), "hover a marker")
}

func TestRun_RequiresDeps(t *testing.T) {
	err := Run(context.Background(), Deps{})
	assert.ErrorIs(t, err, ErrMissingDeps)
}
