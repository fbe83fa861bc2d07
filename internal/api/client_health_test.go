package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// healthBackend serves /propmap/health with respond and counts the probes.
func healthBackend(t *testing.T, respond func(http.ResponseWriter)) (string, *atomic.Int32) {
	t.Helper()
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/propmap/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		probes.Add(1)
		respond(w)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/propmap", &probes
}

func healthyJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: Healthy})
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name    string
		respond func(http.ResponseWriter)
		opts    []ClientOption
		newErr  error
		want    HealthStatus
		probes  int32
	}{
		{name: "healthy json", respond: healthyJSON, want: Healthy, probes: 1},
		{
			name:    "healthy no content",
			respond: func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) },
			want:    Healthy,
			probes:  1,
		},
		{
			name: "not found is unhealthy",
			respond: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(ErrorBody{Error: "NOT_FOUND", Message: "missing"})
			},
			newErr: ErrOffline,
			want:   Unhealthy,
			probes: 1,
		},
		{
			name:    "probe skipped",
			respond: func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
			opts:    []ClientOption{withSkipHealthProbe()},
			want:    Healthy,
			probes:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, probes := healthBackend(t, tt.respond)
			c, err := NewClient(append([]ClientOption{WithBaseURL(base)}, tt.opts...)...)
			if tt.newErr != nil {
				require.ErrorIs(t, err, tt.newErr)
			} else {
				require.NoError(t, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			// NewClient already probed; asking again reuses the cached status.
			status, _ := c.checkHealth(ctx)
			require.Equal(t, tt.want, status)
			require.Equal(t, tt.want, c.healthStatus)
			require.Equal(t, tt.probes, probes.Load())
		})
	}
}

func TestCheckHealth_ConcurrentCallersProbeOnce(t *testing.T) {
	base, probes := healthBackend(t, healthyJSON)
	c, err := NewClient(WithBaseURL(base), withSkipHealthProbe())
	require.NoError(t, err)
	// Construction skipped the probe, so the concurrent callers race on the first one.
	c.skipHealthProbe = false

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.checkHealth(ctx)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), probes.Load())
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient()
	require.ErrorIs(t, err, ErrNoBaseURL)
}

func TestOfflineClientShortCircuits(t *testing.T) {
	base, probes := healthBackend(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c, err := NewClient(WithBaseURL(base))
	require.ErrorIs(t, err, ErrOffline)
	require.NotNil(t, c)
	require.True(t, c.Offline())

	err = c.NotifyRegion(context.Background(), testRegion)
	require.ErrorIs(t, err, ErrOffline)
	require.Equal(t, int32(1), probes.Load(), "only the health probe reaches the server")
}
