// Package filter holds the active filter selections and the pure predicate that
// reduces a listing collection to the visible subset.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/notify"
)

// Dimension names one independent filter axis.
type Dimension int

const (
	Price Dimension = iota
	BHK
	Carpet
	Type
)

// Dimensions lists every axis in panel order.
//
//nolint:gochecknoglobals // immutable lookup table.
var Dimensions = []Dimension{Price, BHK, Carpet, Type}

// ErrUnknownDimension is returned by ParseDimension.
var ErrUnknownDimension = errors.New("unknown filter dimension")

func (d Dimension) String() string {
	switch d {
	case Price:
		return "price"
	case BHK:
		return "bhk"
	case Carpet:
		return "carpet"
	case Type:
		return "type"
	default:
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
}

// ParseDimension maps a dimension name to its Dimension.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

// State is an immutable snapshot of the selections. Each dimension holds its
// selected values in the order they were first added. Seq increases with every
// published snapshot.
type State struct {
	sets [4][]string
	Seq  uint64
}

// Values returns a copy of the selection for d.
func (s State) Values(d Dimension) []string {
	if !valid(d) {
		return nil
	}
	return slices.Clone(s.sets[d])
}

// Has reports whether value is selected on d.
func (s State) Has(d Dimension, value string) bool {
	return valid(d) && slices.Contains(s.sets[d], value)
}

// Empty reports whether no dimension has a selection.
func (s State) Empty() bool {
	for _, set := range s.sets {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// With returns a copy of s with d set to values. Duplicates are dropped.
func (s State) With(d Dimension, values ...string) State {
	if !valid(d) {
		return s
	}
	var set []string
	for _, v := range values {
		if !slices.Contains(set, v) {
			set = append(set, v)
		}
	}
	s.sets[d] = set
	return s
}

func (s State) String() string {
	parts := make([]string, 0, len(Dimensions))
	for _, d := range Dimensions {
		if len(s.sets[d]) > 0 {
			parts = append(parts, d.String()+"="+strings.Join(s.sets[d], ","))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// toggled returns a copy of s with value flipped on d. The other dimensions share
// backing arrays with s, which is safe since sets are never written in place.
func (s State) toggled(d Dimension, value string) State {
	set := s.sets[d]
	if i := slices.Index(set, value); i >= 0 {
		s.sets[d] = slices.Delete(slices.Clone(set), i, i+1)
		return s
	}
	next := make([]string, len(set), len(set)+1)
	copy(next, set)
	s.sets[d] = append(next, value)
	return s
}

func valid(d Dimension) bool {
	return d >= Price && d <= Type
}

// Panel owns the current selections. Mutations are serialized and each one publishes
// the resulting snapshot to subscribers after the mutation commits.
type Panel struct {
	mu        sync.Mutex
	state     State
	listeners notify.Listeners[State]
}

// NewPanel returns a panel with nothing selected.
func NewPanel() *Panel {
	return &Panel{}
}

// Toggle adds value to d's selection, or removes it if already selected. Values are
// not checked against the vocabulary; unknown values never match a listing.
func (p *Panel) Toggle(d Dimension, value string) State {
	if !valid(d) {
		return p.Snapshot()
	}
	return p.commit(func(s State) State { return s.toggled(d, value) })
}

// Replace swaps in a whole selection.
func (p *Panel) Replace(next State) State {
	return p.commit(func(State) State { return next })
}

// Clear drops every selection.
func (p *Panel) Clear() State {
	return p.commit(func(State) State { return State{} })
}

// Snapshot returns the current selections.
func (p *Panel) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for every published snapshot.
func (p *Panel) Subscribe(fn func(State)) (cancel func()) {
	return p.listeners.Add(fn)
}

// commit applies fn under the lock and notifies outside it. Concurrent callers may
// observe deliveries out of order; Seq identifies the newest.
func (p *Panel) commit(fn func(State) State) State {
	p.mu.Lock()
	next := fn(p.state)
	next.Seq = p.state.Seq + 1
	p.state = next
	p.mu.Unlock()

	logrus.Debugf("filters: %s", next)
	p.listeners.Notify(next)
	return next
}
