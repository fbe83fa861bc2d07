package tui

import (
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/viewport"
)

// Message types for Bubble Tea update loop.

// source names the state owner whose subscription fired.
type source int

const (
	srcStore source = iota
	srcFilter
	srcViewport
	srcHover
	sourceCount
)

// changedMsg signals that an owner published a new snapshot. The model reads the
// snapshot itself so coalesced signals never lose the newest state.
type changedMsg struct{ src source }

// syncErrMsg carries a failed viewport sync.
type syncErrMsg struct{ err *viewport.SyncError }

// geocodeMsg carries the result of a search.
type geocodeMsg struct {
	query string
	place geo.Place
	err   error
}
