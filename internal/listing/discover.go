package listing

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultPattern matches every JSON and YAML file below the root.
const DefaultPattern = "**/*.{json,yaml,yml}"

const maxParallelLoads = 4

//nolint:gochecknoglobals // immutable lookup table used across the package.
var skipDirs = []string{".git", "node_modules", "vendor", ".cache"}

// Discover walks root and returns the listing files whose path relative to root
// matches pattern (doublestar syntax). A root that is a file is returned as is.
func Discover(ctx context.Context, root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var (
		found = make(chan string, 64)
		paths []string
		done  = make(chan struct{})
	)
	go func() {
		defer close(done)
		for p := range found {
			paths = append(paths, p)
		}
	}()

	conf := fastwalk.DefaultConfig
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && isSkippedDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || !isListingFile(path) {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			found <- path
		}
		return nil
	})
	close(found)
	<-done
	if walkErr != nil {
		return nil, walkErr
	}
	// fastwalk visits concurrently; keep results deterministic.
	slices.Sort(paths)
	return paths, nil
}

// LoadAll loads every path concurrently and concatenates the listings in path order.
// Files that fail to load are skipped with a warning unless strict is set.
func LoadAll(ctx context.Context, paths []string, strict bool) ([]Listing, error) {
	results := make([][]Listing, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ls, err := LoadFile(p)
			if err != nil {
				if strict {
					return err
				}
				logrus.Warnf("skipping listing file %s: %v", p, err)
				return nil
			}
			logrus.Debugf("loaded %d listings from %s", len(ls), p)
			results[i] = ls
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []Listing
	for _, ls := range results {
		out = append(out, ls...)
	}
	return out, nil
}

func isSkippedDir(name string) bool {
	for _, s := range skipDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
