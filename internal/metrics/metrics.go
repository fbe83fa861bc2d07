// Package metrics exposes prometheus counters for viewport syncs, debounce
// behaviour and hover transitions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/viewport"
)

const namespace = "propmap"

// Recorder owns a registry and the propmap collectors. It satisfies
// viewport.Recorder and hover.Recorder.
type Recorder struct {
	reg *prometheus.Registry

	syncTotal      *prometheus.CounterVec
	syncStale      prometheus.Counter
	syncDuration   prometheus.Histogram
	superseded     prometheus.Counter
	hover          *prometheus.CounterVec
	visible        prometheus.Gauge
	listingsLoaded prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Remote viewport syncs by result.",
		}, []string{"result"}),
		syncStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_stale_total",
			Help:      "Sync completions ignored because a newer settle superseded them.",
		}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Latency of remote viewport syncs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounce_superseded_total",
			Help:      "Settle events that replaced a pending debounce timer.",
		}),
		hover: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hover_transitions_total",
			Help:      "Hover card transitions by target state.",
		}, []string{"to"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_listings",
			Help:      "Listings passing the current filters and region.",
		}),
		listingsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings",
			Help:      "Listings held by the store.",
		}),
	}
	r.reg.MustRegister(
		r.syncTotal, r.syncStale, r.syncDuration, r.superseded, r.hover, r.visible, r.listingsLoaded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) DebounceSuperseded() { r.superseded.Inc() }

func (r *Recorder) SyncStale() { r.syncStale.Inc() }

func (r *Recorder) SyncFinished(result viewport.Result, elapsed time.Duration) {
	r.syncTotal.WithLabelValues(string(result)).Inc()
	r.syncDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) HoverTransition(to string) { r.hover.WithLabelValues(to).Inc() }

// SetVisible records the size of the visible subset.
func (r *Recorder) SetVisible(n int) { r.visible.Set(float64(n)) }

// SetListings records the store size.
func (r *Recorder) SetListings(n int) { r.listingsLoaded.Set(float64(n)) }

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logrus.Debugf("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
