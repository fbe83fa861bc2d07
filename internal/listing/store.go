package listing

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/notify"
)

// Change is published after every append.
type Change struct {
	Added []Listing
	Len   int
	Seq   uint64
}

// Store is the append-only collection of listings. It is safe for concurrent use.
type Store struct {
	clock clockwork.Clock

	mu    sync.RWMutex
	items []Listing
	ids   map[int64]struct{}
	maxID int64
	seq   uint64

	listeners notify.Listeners[Change]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used to derive ids.
func WithClock(c clockwork.Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{clock: clockwork.NewRealClock(), ids: make(map[int64]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append coerces a form draft and stores it under a fresh id.
func (s *Store) Append(d Draft) Listing {
	l := d.Coerce()
	s.mu.Lock()
	l.ID = s.nextIDLocked()
	s.addLocked(l)
	ch := s.changeLocked([]Listing{l})
	s.mu.Unlock()

	logrus.Debugf("listing appended: %s", l)
	s.listeners.Notify(ch)
	return l
}

// AppendListings stores already-typed listings, such as a bulk load. Supplied ids are
// kept unless zero or already taken. The stored listings are returned in input order.
func (s *Store) AppendListings(ls []Listing) []Listing {
	if len(ls) == 0 {
		return nil
	}
	out := make([]Listing, 0, len(ls))
	s.mu.Lock()
	for _, l := range ls {
		if _, taken := s.ids[l.ID]; l.ID == 0 || taken {
			if l.ID != 0 {
				logrus.Debugf("listing id %d already taken; reassigning", l.ID)
			}
			l.ID = s.nextIDLocked()
		}
		s.addLocked(l)
		out = append(out, l)
	}
	ch := s.changeLocked(out)
	s.mu.Unlock()

	s.listeners.Notify(ch)
	return out
}

// All returns a copy of the listings in insertion order.
func (s *Store) All() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Listing, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored listings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the listing with id.
func (s *Store) Get(id int64) (Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.items {
		if l.ID == id {
			return l, true
		}
	}
	return Listing{}, false
}

// Subscribe registers fn for every committed append.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	return s.listeners.Add(fn)
}

// nextIDLocked derives an id from the clock, bumped past the largest id in use.
func (s *Store) nextIDLocked() int64 {
	id := s.clock.Now().UnixMilli()
	if id <= s.maxID {
		id = s.maxID + 1
	}
	return id
}

func (s *Store) addLocked(l Listing) {
	s.items = append(s.items, l)
	s.ids[l.ID] = struct{}{}
	if l.ID > s.maxID {
		s.maxID = l.ID
	}
}

func (s *Store) changeLocked(added []Listing) Change {
	s.seq++
	return Change{Added: added, Len: len(s.items), Seq: s.seq}
}
