package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/listing"
)

// form field order.
const (
	fieldName = iota
	fieldType
	fieldBHK
	fieldCarpet
	fieldPrice
	fieldPriceCr
	fieldLat
	fieldLng
	fieldCount
)

//nolint:gochecknoglobals // immutable labels.
var fieldLabels = [fieldCount]string{"Name", "Type", "BHK", "Carpet", "Price", "Price Cr", "Lat", "Lng"}

// form is the create-listing form. The store coerces whatever it captures.
type form struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

func newForm() form {
	var f form
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 64
		in.Width = 24
		f.inputs[i] = in
	}
	f.inputs[fieldType].Placeholder = "residential, commercial or plot"
	f.inputs[fieldBHK].Placeholder = "e.g. 2"
	f.inputs[fieldCarpet].Placeholder = "sq ft"
	f.inputs[fieldPrice].Placeholder = "rupees"
	f.inputs[fieldPriceCr].Placeholder = "crore"
	return f
}

// reset clears every field, prefills the coordinates with center and focuses Name.
func (f *form) reset(center geo.Point) tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
		f.inputs[i].Blur()
	}
	f.inputs[fieldLat].SetValue(strconv.FormatFloat(center.Lat, 'f', 5, 64))
	f.inputs[fieldLng].SetValue(strconv.FormatFloat(center.Lng, 'f', 5, 64))
	f.focus = fieldName
	return f.inputs[f.focus].Focus()
}

// move shifts focus by delta fields, wrapping around.
func (f *form) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *form) last() bool { return f.focus == fieldCount-1 }

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f form) draft() listing.Draft {
	v := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }
	return listing.Draft{
		Name:    v(fieldName),
		Type:    v(fieldType),
		BHK:     v(fieldBHK),
		Carpet:  v(fieldCarpet),
		Price:   v(fieldPrice),
		PriceCr: v(fieldPriceCr),
		Lat:     v(fieldLat),
		Lng:     v(fieldLng),
	}
}

func (f form) view() string {
	label := lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("241"))
	active := label.Foreground(lipgloss.Color("69")).Bold(true)
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("New listing"))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		st := label
		if i == f.focus {
			st = active
		}
		b.WriteString(st.Render(fieldLabels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("tab: next • enter on Lng: save • esc: cancel"))
	return b.String()
}
