package listing

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher re-reads listing files when they change and appends the entries that were not
// ingested from that file before. Removed or edited entries are left untouched; the
// store never deletes.
type Watcher struct {
	store *Store
	fw    *fsnotify.Watcher

	mu    sync.Mutex
	seen  map[string]map[string]struct{}
	dirs  map[string]struct{}
	added func(path string, n int)
}

// NewWatcher returns a Watcher appending into store.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		store: store,
		fw:    fw,
		seen:  make(map[string]map[string]struct{}),
		dirs:  make(map[string]struct{}),
	}, nil
}

// OnAppend registers a callback invoked after a reload appended n listings.
func (w *Watcher) OnAppend(fn func(path string, n int)) {
	w.mu.Lock()
	w.added = fn
	w.mu.Unlock()
}

// Add starts watching path. initial are the listings already ingested from it.
// The parent directory is watched so editors that replace files are still seen.
func (w *Watcher) Add(path string, initial []Listing) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make(map[string]struct{}, len(initial))
	for _, l := range initial {
		keys[sourceKey(l)] = struct{}{}
	}
	w.seen[abs] = keys

	dir := filepath.Dir(abs)
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = struct{}{}
	return nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !w.watching(abs) {
				continue
			}
			if _, err := w.Reload(abs); err != nil {
				logrus.Warnf("reload %s: %v", abs, err)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			logrus.Debugf("file watcher error: %v", err)
		}
	}
}

// Reload re-reads path and appends listings not seen from it before. It returns the
// number appended.
func (w *Watcher) Reload(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	ls, err := LoadFile(abs)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	seen, ok := w.seen[abs]
	if !ok {
		seen = make(map[string]struct{})
		w.seen[abs] = seen
	}
	var fresh []Listing
	for _, l := range ls {
		k := sourceKey(l)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, l)
	}
	cb := w.added
	w.mu.Unlock()

	if len(fresh) == 0 {
		return 0, nil
	}
	w.store.AppendListings(fresh)
	logrus.Debugf("appended %d listings from %s", len(fresh), abs)
	if cb != nil {
		cb(abs, len(fresh))
	}
	return len(fresh), nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

func (w *Watcher) watching(abs string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[abs]
	return ok
}

// sourceKey identifies an entry within its file: the id when set, otherwise its
// name and position.
func sourceKey(l Listing) string {
	if l.ID != 0 {
		return "id:" + strconv.FormatInt(l.ID, 10)
	}
	return fmt.Sprintf("anon:%s|%g|%g", l.Name, l.Lat, l.Lng)
}
