package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/hover"
	"github.com/ensigniasec/propmap/internal/listing"
)

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		renderMap(m.mapRegion(), m.visible, m.hovered),
		renderCard(m.hovered),
	)

	var right string
	switch m.mode {
	case ModeForm:
		right = m.form.view()
	default:
		m.markers.SetSize(m.rightWidth(), m.listHeight())
		right = lipgloss.JoinVertical(lipgloss.Left,
			m.markers.View(),
			"",
			renderFilters(m),
		)
	}

	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	if m.width > 0 && m.width < minTwoColumnWidth {
		b.WriteString(left)
		b.WriteString("\n")
		b.WriteString(right)
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(leftColumnMax).Render(left),
			lipgloss.NewStyle().MarginLeft(2).Render(right),
		))
	}
	b.WriteString("\n")
	if m.mode == ModeSearch {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(renderStatus(m))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) rightWidth() int {
	if m.width == 0 {
		return rightColumnMax
	}
	w := m.width - leftColumnMax - 2
	return max(1, min(w, rightColumnMax))
}

func (m Model) listHeight() int {
	if m.height == 0 {
		return listMinHeight * 4
	}
	return max(listMinHeight, m.height-listOverheadLines-filterPanelLines)
}

// mapRegion is the settled region, or the camera bounds before the first settle.
func (m Model) mapRegion() geo.Region {
	if m.sync.Region != nil {
		return *m.sync.Region
	}
	return m.camera.Bounds()
}

func renderHeader(m Model) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")).Render("propmap")
	where := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
		fmt.Sprintf("%s • zoom %d • %.4f, %.4f", geo.Cities[m.cityIdx].Name, m.camera.Zoom, m.camera.Center.Lat, m.camera.Center.Lng),
	)
	count := fmt.Sprintf("%d of %d listings", len(m.visible), len(m.listings))
	if m.sync.Loading {
		count = m.spinner.View() + " loading"
	}
	return strings.Join([]string{title, where, count, modeBadge(m)}, "  ")
}

func modeBadge(m Model) string {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch {
	case m.deps.Offline && m.deps.Anonymous:
		return style.Foreground(lipgloss.Color("208")).Render("OFFLINE • ANON")
	case m.deps.Offline:
		return style.Foreground(lipgloss.Color("208")).Render("OFFLINE")
	case m.deps.Anonymous:
		return style.Foreground(lipgloss.Color("69")).Render("ANON")
	default:
		return style.Foreground(lipgloss.Color("46")).Render("ONLINE")
	}
}

// renderMap plots the listings on a character grid spanning region. The hovered
// listing is drawn last so it stays on top.
func renderMap(region geo.Region, ls []listing.Listing, hs hover.State) string {
	grid := make([][]string, mapRows)
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render("·")
	for r := range grid {
		grid[r] = make([]string, mapCols)
		for c := range grid[r] {
			grid[r][c] = " "
			if r%4 == 0 && c%8 == 0 {
				grid[r][c] = dot
			}
		}
	}
	grid[mapRows/2][mapCols/2] = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("+")

	for _, l := range ls {
		if r, c, ok := cell(region, l.Lat, l.Lng); ok {
			grid[r][c] = typeIcon(l.Type)
		}
	}
	if hs.Active != nil {
		if r, c, ok := cell(region, hs.Active.Lat, hs.Active.Lng); ok {
			grid[r][c] = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true).Render("◉")
		}
	}

	rows := make([]string, mapRows)
	for r := range grid {
		rows[r] = strings.Join(grid[r], "")
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).
		Render(strings.Join(rows, "\n"))
}

// cell maps a coordinate to a grid position. Regions crossing the antimeridian are
// unwrapped so the west edge is column zero.
func cell(region geo.Region, lat, lng float64) (row, col int, ok bool) {
	if !region.Contains(lat, lng) {
		return 0, 0, false
	}
	span := region.East - region.West
	x := lng - region.West
	if span <= 0 {
		span += 360
		if x < 0 {
			x += 360
		}
	}
	height := region.North - region.South
	if span == 0 || height == 0 {
		return mapRows / 2, mapCols / 2, true
	}
	col = int(math.Round(x / span * (mapCols - 1)))
	row = int(math.Round((region.North - lat) / height * (mapRows - 1)))
	return min(max(row, 0), mapRows-1), min(max(col, 0), mapCols-1), true
}

// renderCard draws the hover card with the listing name and price.
func renderCard(hs hover.State) string {
	box := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Width(mapCols)
	if hs.Active == nil {
		return box.BorderForeground(lipgloss.Color("237")).
			Render(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("j/k to hover a marker"))
	}
	l := hs.Active
	body := lipgloss.NewStyle().Bold(true).Render(l.Name) + "\n" +
		l.PriceLabel() + "\n" +
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(
			fmt.Sprintf("%s • %s BHK • %s sq ft", l.TypeLabel(), l.BHK, l.Carpet),
		)
	color := lipgloss.Color("69")
	if hs.ClosePending {
		color = lipgloss.Color("240")
	}
	return box.BorderForeground(color).Render(body)
}

// renderFilters draws the checkbox panel grouped by dimension.
func renderFilters(m Model) string {
	focused := m.mode == ModeFilters
	heading := lipgloss.NewStyle().Bold(true)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)

	var b strings.Builder
	b.WriteString(heading.Render("Filters"))
	if focused {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  space: toggle • x: clear • esc: back"))
	}
	prev := -1
	for i, row := range m.filterRows {
		if int(row.dim) != prev {
			prev = int(row.dim)
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(row.dim.String() + ":"))
		}
		box := "[ ]"
		if m.filters.Has(row.dim, row.opt.Value) {
			box = "[x]"
		}
		item := fmt.Sprintf(" %s %s", box, row.opt.Label)
		if focused && i == m.filterCursor {
			item = cursorStyle.Render(item)
		}
		b.WriteString(item)
	}
	return b.String()
}

// renderStatus shows the last sync failure, or the latest notice.
func renderStatus(m Model) string {
	if err := m.statusErr(); err != nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("sync failed: " + err.Error())
	}
	if m.notice != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(m.notice)
	}
	return ""
}

func (m Model) statusErr() error {
	if m.lastErr != nil {
		return m.lastErr
	}
	return m.sync.LastErr
}
