package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/filter"
	"github.com/ensigniasec/propmap/internal/hover"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/viewport"
)

// ErrMissingDeps is returned by Run when a required component is nil.
var ErrMissingDeps = errors.New("tui: store, panel, tracker and hover are required")

// Run starts the Bubble Tea TUI program over the engine components and blocks until
// the user quits or ctx is cancelled.
func Run(ctx context.Context, deps Deps) error {
	if deps.Store == nil || deps.Panel == nil || deps.Tracker == nil || deps.Hover == nil {
		return ErrMissingDeps
	}

	changed, unsubscribe := subscribe(deps)
	defer unsubscribe()

	model := NewModel(ctx, deps, changed)

	// The map reports its initial bounds once it has loaded.
	deps.Tracker.Settled(model.Camera().Bounds())

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Silence external logs (WARN/ERRO) during TUI to avoid corrupting the view.
	prevOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(prevOut)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// subscribe bridges every owner's listeners onto single-slot signal channels. A signal
// that finds the slot full is dropped: the pending one already makes the model read the
// newest snapshot.
func subscribe(deps Deps) ([sourceCount]chan struct{}, func()) {
	var chans [sourceCount]chan struct{}
	for i := range chans {
		chans[i] = make(chan struct{}, 1)
	}
	kick := func(src source) {
		select {
		case chans[src] <- struct{}{}:
		default:
		}
	}
	cancels := []func(){
		deps.Store.Subscribe(func(listing.Change) { kick(srcStore) }),
		deps.Panel.Subscribe(func(filter.State) { kick(srcFilter) }),
		deps.Tracker.Subscribe(func(viewport.State) { kick(srcViewport) }),
		deps.Hover.Subscribe(func(hover.State) { kick(srcHover) }),
	}
	return chans, func() {
		for _, c := range cancels {
			c()
		}
	}
}
