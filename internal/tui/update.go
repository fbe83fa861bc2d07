package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ensigniasec/propmap/internal/geo"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = x.Width, x.Height
		m.markers.SetSize(m.rightWidth(), m.listHeight())
		m.help.Width = x.Width
		return m, nil

	case tea.KeyMsg:
		if x.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case ModeSearch:
			return m.handleSearchKey(x)
		case ModeForm:
			return m.handleFormKey(x)
		case ModeFilters:
			return m.handleFilterKey(x)
		default:
			return m.handleBrowseKey(x)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(x)
		return m, cmd

	case changedMsg:
		m.applyChange(x.src)
		return m, m.listenFor(x.src)

	case syncErrMsg:
		m.lastErr = x.err
		return m, m.listenForErrors()

	case geocodeMsg:
		if x.err != nil {
			m.notice = fmt.Sprintf("search %q: %v", x.query, x.err)
			return m, nil
		}
		m.notice = "moved to " + x.place.Name
		m.moveCamera(m.camera.PanTo(x.place.Point).SetZoom(geo.SearchZoom))
		return m, nil
	}

	return m, nil
}

// applyChange pulls the newest snapshot of src. Snapshots older than the one held are
// dropped.
func (m *Model) applyChange(src source) {
	switch src {
	case srcStore:
		m.listings = m.deps.Store.All()
	case srcFilter:
		s := m.deps.Panel.Snapshot()
		if s.Seq < m.filters.Seq {
			return
		}
		m.filters = s
	case srcViewport:
		s := m.deps.Tracker.Snapshot()
		if s.Seq < m.sync.Seq {
			return
		}
		m.sync = s
		if s.LastErr == nil && !s.Loading {
			m.lastErr = nil
		}
	case srcHover:
		s := m.deps.Hover.Snapshot()
		if s.Seq >= m.hovered.Seq {
			m.hovered = s
		}
		return
	case sourceCount:
		return
	}
	m.refreshVisible()
}

// handleBrowseKey processes map and marker bindings.
func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { // nolint:ireturn,cyclop
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Leave), key.Matches(msg, m.keys.Escape):
		m.deps.Hover.Leave()

	case key.Matches(msg, m.keys.PanN):
		m.moveCamera(m.camera.Pan(0, panFraction))
	case key.Matches(msg, m.keys.PanS):
		m.moveCamera(m.camera.Pan(0, -panFraction))
	case key.Matches(msg, m.keys.PanE):
		m.moveCamera(m.camera.Pan(panFraction, 0))
	case key.Matches(msg, m.keys.PanW):
		m.moveCamera(m.camera.Pan(-panFraction, 0))
	case key.Matches(msg, m.keys.ZoomIn):
		m.moveCamera(m.camera.ZoomBy(1))
	case key.Matches(msg, m.keys.ZoomOut):
		m.moveCamera(m.camera.ZoomBy(-1))

	case key.Matches(msg, m.keys.City):
		m.cityIdx = (m.cityIdx + 1) % len(geo.Cities)
		city := geo.Cities[m.cityIdx]
		m.notice = "city: " + city.Name
		if m.deps.OnCity != nil {
			m.deps.OnCity(city.Name)
		}
		m.moveCamera(m.camera.PanTo(city.Point).SetZoom(geo.DefaultZoom))

	case key.Matches(msg, m.keys.Search):
		m.mode = ModeSearch
		m.search.SetValue("")
		return m, tea.Batch(m.search.Focus(), textinput.Blink)

	case key.Matches(msg, m.keys.New):
		m.mode = ModeForm
		return m, tea.Batch(m.form.reset(m.camera.Center), textinput.Blink)

	case key.Matches(msg, m.keys.Filters):
		m.mode = ModeFilters

	case key.Matches(msg, m.keys.Clear):
		m.deps.Panel.Clear()
	}
	return m, nil
}

// handleFilterKey moves over the filter checkboxes and toggles them.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Filters):
		m.mode = ModeBrowse
	case key.Matches(msg, m.keys.Down):
		if m.filterCursor < len(m.filterRows)-1 {
			m.filterCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.filterCursor > 0 {
			m.filterCursor--
		}
	case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Submit):
		row := m.filterRows[m.filterCursor]
		m.deps.Panel.Toggle(row.dim, row.opt.Value)
	case key.Matches(msg, m.keys.Clear):
		m.deps.Panel.Clear()
	}
	return m, nil
}

// handleSearchKey edits the query and submits it to the geocoder.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = ModeBrowse
		m.search.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		m.mode = ModeBrowse
		m.search.Blur()
		query := m.search.Value()
		m.notice = "searching " + query + "..."
		return m, m.geocode(query)
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// handleFormKey cycles the form fields and saves the draft from the last field.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { // nolint:ireturn
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = ModeBrowse
		m.notice = "new listing discarded"
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if !m.form.last() {
			return m, m.form.move(1)
		}
		l := m.deps.Store.Append(m.form.draft())
		m.mode = ModeBrowse
		m.notice = "added " + l.String()
		return m, nil
	case key.Matches(msg, m.keys.Next):
		return m, m.form.move(1)
	case key.Matches(msg, m.keys.Prev):
		return m, m.form.move(-1)
	}
	return m, m.form.update(msg)
}

// moveSelection leaves the hovered marker and enters the next one, so a move between
// adjacent markers never closes the card.
func (m *Model) moveSelection(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.deps.Hover.Leave()
	if delta > 0 {
		m.markers.CursorDown()
	} else {
		m.markers.CursorUp()
	}
	if it, ok := m.markers.SelectedItem().(markerItem); ok {
		m.deps.Hover.Enter(it.Listing)
	}
}

// moveCamera reports a map motion followed by its settled bounds.
func (m *Model) moveCamera(c geo.Camera) {
	m.camera = c
	m.deps.Tracker.MotionStarted()
	m.deps.Tracker.Settled(c.Bounds())
}

// geocode resolves query off the update loop.
func (m Model) geocode(query string) tea.Cmd {
	g := m.deps.Geocoder
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, geocodeTimeout)
		defer cancel()
		place, err := g.Geocode(ctx, query)
		return geocodeMsg{query: query, place: place, err: err}
	}
}
