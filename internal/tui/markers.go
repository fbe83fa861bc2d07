package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/propmap/internal/listing"
)

// markerItem is the list item backing one visible listing.
type markerItem struct {
	listing.Listing
}

// List item interface methods.
func (it markerItem) Title() string       { return it.Name }
func (it markerItem) Description() string { return it.PriceLabel() }
func (it markerItem) FilterValue() string { return it.Name }

// markerDelegate renders markerItem rows with the price and type right-justified.
type markerDelegate struct{}

func (d markerDelegate) Height() int                             { return 1 }
func (d markerDelegate) Spacing() int                            { return 0 }
func (d markerDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d markerDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(markerItem)
	if !ok {
		return
	}
	selected := index == m.Index()
	leftPrefix := "  "
	lineStyle := lipgloss.NewStyle()
	if selected {
		leftPrefix = "> "
		lineStyle = lineStyle.Foreground(lipgloss.Color("69")).Bold(true)
	}

	left := fmt.Sprintf("%s%02d. %s", leftPrefix, index+1, it.Name)
	right := it.PriceLabel() + " " + typeIcon(it.Type)

	padding := m.Width() - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	line := left + spaces(padding) + right
	_, _ = fmt.Fprint(w, lineStyle.Render(line))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(n).Render("")
}

// typeColor is the marker color for a property type.
func typeColor(t listing.Type) lipgloss.Color {
	switch t {
	case listing.Residential:
		return lipgloss.Color("46")
	case listing.Commercial:
		return lipgloss.Color("208")
	case listing.Plot:
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("240")
	}
}

func typeIcon(t listing.Type) string {
	return lipgloss.NewStyle().Foreground(typeColor(t)).Render("●")
}
