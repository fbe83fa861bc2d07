package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	api "github.com/ensigniasec/propmap/internal/api"
	"github.com/ensigniasec/propmap/internal/broker"
	"github.com/ensigniasec/propmap/internal/clock"
	"github.com/ensigniasec/propmap/internal/config"
	"github.com/ensigniasec/propmap/internal/filter"
	"github.com/ensigniasec/propmap/internal/geo"
	"github.com/ensigniasec/propmap/internal/hover"
	"github.com/ensigniasec/propmap/internal/listing"
	"github.com/ensigniasec/propmap/internal/metrics"
	"github.com/ensigniasec/propmap/internal/storage"
	"github.com/ensigniasec/propmap/internal/tui"
	"github.com/ensigniasec/propmap/internal/viewport"
)

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Open the interactive map",
	Long: "Open the interactive map. Pan and zoom report the settled viewport after a quiet period; " +
		"markers, filters, search and the new-listing form are driven from the keyboard (press ? for help).",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, true)
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Resolve client identity from storage, creating new storage if none exists yet.
		st, err := storage.NewOrExistingStorage(cfg.StorageFile)
		if err != nil {
			logrus.Fatalf("Unable to open or create storage: %v", err)
		}
		id := identity(st)
		ctx = api.WithIdentity(ctx, id)

		city := cfg.City
		if city == "" {
			city = st.Data.LastCity
		}
		center, ok := geo.City(city)
		if !ok {
			center, _ = geo.City(geo.DefaultCity)
		}

		rec := metrics.New()
		if cfg.MetricsAddr != "" {
			go func() {
				if err := rec.Serve(ctx, cfg.MetricsAddr); err != nil {
					logrus.Warnf("metrics server: %v", err)
				}
			}()
		}

		store := listing.NewStore()
		store.Subscribe(func(c listing.Change) { rec.SetListings(c.Len) })
		ls, paths, err := loadListings(ctx, cfg)
		if err != nil {
			logrus.Fatal(err)
		}
		store.AppendListings(ls)

		if cfg.Watch && len(paths) > 0 {
			w, err := watchListings(store, paths)
			if err != nil {
				logrus.Fatal(err)
			}
			defer w.Close()
			go func() {
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logrus.Warnf("listing watcher: %v", err)
				}
			}()
		}

		hook, geocoder, online, closeHook := buildHook(cfg, id)
		defer closeHook()

		tracker := viewport.New(hook,
			viewport.WithDebounce(cfg.Debounce),
			viewport.WithRecorder(rec),
		)
		defer tracker.Close()

		hv := hover.New(clock.Real(),
			hover.WithCloseDelay(cfg.HoverDelay),
			hover.WithRecorder(rec),
		)

		cam := geo.NewCamera(center.Point).SetZoom(cfg.Zoom)
		err = tui.Run(ctx, tui.Deps{
			Store:     store,
			Panel:     filter.NewPanel(),
			Tracker:   tracker,
			Hover:     hv,
			Geocoder:  geocoder,
			Gauge:     rec,
			City:      center.Name,
			Camera:    cam,
			Offline:   !online,
			Anonymous: id.Anonymous,
			OnCity: func(name string) {
				if err := st.RememberCity(name); err != nil {
					logrus.Debugf("remember city: %v", err)
				}
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.Fatalf("TUI mode failed: %v", err)
		}
		if cfg.City != "" {
			if err := st.RememberCity(center.Name); err != nil {
				logrus.Debugf("remember city: %v", err)
			}
		}
	},
}

// buildHook assembles the remote sync hook from the configured backends: the HTTP
// backend behind retries, and NATS. With neither available the simulated sync is used.
// The returned geocoder is the backend when reachable, else the offline gazetteer.
func buildHook(cfg config.Config, id api.Identity) (viewport.Hook, geo.Geocoder, bool, func()) {
	var (
		hooks    viewport.MultiHook
		closers  []func()
		geocoder geo.Geocoder = geo.NewGazetteer()
	)

	if cfg.Remote() {
		cl, err := api.NewClient(
			api.WithBaseURL(cfg.APIURL),
			api.WithAPIKey(cfg.APIKey),
			api.WithDefaultIdentity(id),
		)
		switch {
		case err == nil:
			hooks = append(hooks, viewport.NewRetryHook(cl, cfg.SyncAttempts))
			geocoder = cl
		case errors.Is(err, api.ErrOffline):
			logrus.Warn("remote health unavailable; continuing with simulated sync")
		default:
			logrus.Warnf("api client init failed: %v", err)
		}
	}

	if !cfg.Offline && cfg.NATSURL != "" {
		nh, err := broker.Connect(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logrus.Warnf("nats unavailable: %v", err)
		} else {
			hooks = append(hooks, nh)
			closers = append(closers, func() { _ = nh.Close() })
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	switch len(hooks) {
	case 0:
		return viewport.SimulatedHook{Delay: cfg.SyncDelay}, geocoder, false, closeAll
	case 1:
		return hooks[0], geocoder, true, closeAll
	default:
		return hooks, geocoder, true, closeAll
	}
}

// watchListings registers every listing file with a watcher seeded with its current
// contents.
func watchListings(store *listing.Store, paths []string) (*listing.Watcher, error) {
	w, err := listing.NewWatcher(store)
	if err != nil {
		return nil, err
	}
	w.OnAppend(func(path string, n int) {
		logrus.Debugf("appended %d listings from %s", n, path)
	})
	for _, p := range paths {
		ls, err := listing.LoadFile(p)
		if err != nil {
			logrus.Warnf("not watching %s: %v", p, err)
			continue
		}
		if err := w.Add(p, ls); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}
