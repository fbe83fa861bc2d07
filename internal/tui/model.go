package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/propmap/internal/filter"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/hover"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/viewport"
)

// Mode is the component holding keyboard focus.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeFilters
	ModeSearch
	ModeForm
)

// Gauge receives the size of the visible subset after every recomputation.
type Gauge interface {
	SetVisible(n int)
}

// Deps are the engine components the browser drives. Store, Panel, Tracker and Hover
// are required.
type Deps struct {
	Store    *listing.Store
	Panel    *filter.Panel
	Tracker  *viewport.Tracker
	Hover    *hover.Coordinator
	Geocoder geo.Geocoder
	Gauge    Gauge

	// City is the initial reference city; Camera overrides it when its viewport is set.
	City   string
	Camera geo.Camera
	// OnCity is called with the name of each city selected with the city key.
	OnCity func(name string)

	Offline   bool
	Anonymous bool
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx  context.Context
	deps Deps

	camera  geo.Camera
	cityIdx int

	// latest snapshots read from the state owners
	listings []listing.Listing
	filters  filter.State
	sync     viewport.State
	hovered  hover.State
	visible  []listing.Listing

	lastErr *viewport.SyncError
	notice  string

	mode         Mode
	markers      list.Model
	filterRows   []filterRow
	filterCursor int
	search       textinput.Model
	form         form
	spinner      spinner.Model
	help         help.Model
	keys         keyMap

	width    int
	height   int
	quitting bool

	// inbound signals from the subscription bridge
	changed [sourceCount]chan struct{}
}

// filterRow is one checkbox of the filter panel.
type filterRow struct {
	dim filter.Dimension
	opt filter.Option
}

func newFilterRows() []filterRow {
	var rows []filterRow
	for _, d := range filter.Dimensions {
		for _, o := range filter.Vocabulary(d) {
			rows = append(rows, filterRow{dim: d, opt: o})
		}
	}
	return rows
}

// NewModel constructs a Model with the current snapshots of every owner.
func NewModel(ctx context.Context, deps Deps, changed [sourceCount]chan struct{}) Model {
	if deps.Geocoder == nil {
		deps.Geocoder = geo.NewGazetteer()
	}

	cityIdx := cityIndex(deps.City)
	cam := deps.Camera
	if cam.Width == 0 || cam.Height == 0 {
		cam = geo.NewCamera(geo.Cities[cityIdx].Point)
	}

	lst := list.New([]list.Item{}, markerDelegate{}, rightColumnMax, listMinHeight*4)
	lst.Title = "Markers"
	lst.SetShowStatusBar(true)
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)
	lst.SetShowPagination(true)
	lst.SetStatusBarItemName("listing", "listings")

	search := textinput.New()
	search.Placeholder = "city name or lat,lng"
	search.Prompt = "search: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:        ctx,
		deps:       deps,
		camera:     cam,
		cityIdx:    cityIdx,
		listings:   deps.Store.All(),
		filters:    deps.Panel.Snapshot(),
		sync:       deps.Tracker.Snapshot(),
		hovered:    deps.Hover.Snapshot(),
		markers:    lst,
		filterRows: newFilterRows(),
		search:     search,
		form:       newForm(),
		spinner:    sp,
		help:       help.New(),
		keys:       newKeyMap(),
		changed:    changed,
	}
	m.refreshVisible()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.listenForErrors()}
	for src := range sourceCount {
		cmds = append(cmds, m.listenFor(src))
	}
	return tea.Batch(cmds...)
}

// Mode reports which component holds focus.
func (m Model) Mode() Mode { return m.mode }

// Camera returns the simulated map widget.
func (m Model) Camera() geo.Camera { return m.camera }

// Visible returns the listings currently drawn on the map.
func (m Model) Visible() []listing.Listing { return m.visible }

// listenFor returns a Tea command that waits for the next signal from src.
func (m Model) listenFor(src source) tea.Cmd {
	ch := m.changed[src]
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{src: src}
	}
}

// listenForErrors returns a Tea command that waits for the next sync failure.
func (m Model) listenForErrors() tea.Cmd {
	errs := m.deps.Tracker.Errors()
	return func() tea.Msg {
		err, ok := <-errs
		if !ok {
			return nil
		}
		return syncErrMsg{err: err}
	}
}

// refreshVisible recomputes the visible subset and keeps the list cursor on the
// same listing when it survives.
func (m *Model) refreshVisible() {
	var selected int64 = -1
	if it, ok := m.markers.SelectedItem().(markerItem); ok {
		selected = it.ID
	}

	m.visible = filter.Visible(m.listings, m.filters, m.sync.Region)

	items := make([]list.Item, len(m.visible))
	cursor := 0
	for i, l := range m.visible {
		items[i] = markerItem{Listing: l}
		if l.ID == selected {
			cursor = i
		}
	}
	m.markers.SetItems(items)
	if len(items) > 0 {
		m.markers.Select(cursor)
	}
	if m.deps.Gauge != nil {
		m.deps.Gauge.SetVisible(len(m.visible))
	}
}

func cityIndex(name string) int {
	p, ok := geo.City(name)
	if !ok {
		p, _ = geo.City(geo.DefaultCity)
	}
	for i, c := range geo.Cities {
		if c.Name == p.Name {
			return i
		}
	}
	return 0
}
