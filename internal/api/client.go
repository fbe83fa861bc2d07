// Package api is the HTTP client for the listings backend: it reports settled
// viewports and resolves geocoding queries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

//nolint:gochecknoglobals // default values are overwritten by WithHTTPClient.
var (
	defaultTimeout = 3 * time.Second
)

// ErrNoBaseURL is returned by NewClient when no backend is configured.
var ErrNoBaseURL = errors.New("api base URL is required")

// Client talks to the listings backend. It satisfies viewport.Hook and geo.Geocoder.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	userAgent       string
	defaultIdentity Identity
	apiKey          string

	// Cached health state for one-shot health probing.
	healthOnce   sync.Once
	healthStatus HealthStatus
	healthErr    error
	forceOffline atomic.Bool

	// skipHealthProbe disables the initial /health check; used by tests.
	skipHealthProbe bool
}

// ClientOption mutates Client configuration.
type ClientOption func(*Client)

// WithBaseURL configures the API base URL for production or tests.
func WithBaseURL(base string) ClientOption { //nolint:ireturn
	return func(c *Client) {
		if base == "" {
			return
		}
		if u, err := url.Parse(base); err == nil {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption { //nolint:ireturn
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) ClientOption { //nolint:ireturn
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithDefaultIdentity sets the identity used when the context carries none.
func WithDefaultIdentity(id Identity) ClientOption { //nolint:ireturn
	return func(c *Client) {
		c.defaultIdentity = id
	}
}

// withSkipHealthProbe disables the initial /health probe on first request.
// Intended for internal tests that don't expose a /health endpoint.
func withSkipHealthProbe() ClientOption { //nolint:ireturn
	return func(c *Client) {
		c.skipHealthProbe = true
	}
}

// NewClient constructs a new Client. Unless disabled it probes /health once; on
// failure the client is returned marked offline together with ErrOffline so the
// caller can fall back to the simulated hook.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == nil {
		return nil, ErrNoBaseURL
	}
	if c.skipHealthProbe {
		c.healthStatus = Healthy
		return c, nil
	}
	hctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()
	if status, err := c.checkHealth(hctx); err != nil || status != Healthy {
		c.forceOffline.Store(true)
		return c, ErrOffline
	}
	return c, nil
}

const healthProbeTimeout = 3 * time.Second

// checkHealth performs a one-time health probe to /health and caches the status.
// Subsequent calls return the cached status immediately.
func (c *Client) checkHealth(ctx context.Context) (HealthStatus, error) {
	c.healthOnce.Do(func() {
		if c.skipHealthProbe {
			c.healthStatus = Healthy
			c.healthErr = nil
			return
		}
		hctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
		defer cancel()

		// Use a raw request to avoid re-entrancy via newRequest -> checkHealth.
		u := c.buildURL("/health", nil)
		req, err := http.NewRequestWithContext(hctx, http.MethodGet, u, nil)
		if err != nil {
			c.healthStatus = Unhealthy
			c.healthErr = err
			return
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.healthStatus = Unhealthy
			c.healthErr = err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			// Any 2xx is healthy even if the body doesn't decode.
			var hr HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&hr); err == nil && hr.Status != "" {
				c.healthStatus = hr.Status
			} else {
				c.healthStatus = Healthy
			}
			c.healthErr = nil
			return
		}
		c.healthStatus = Unhealthy
		c.healthErr = fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	})
	return c.healthStatus, c.healthErr
}

// Offline reports whether the health probe failed.
func (c *Client) Offline() bool {
	return c.forceOffline.Load()
}

// --- Helpers ---

func defaultUserAgent() string {
	return fmt.Sprintf("propmap/%s (%s; %s)", BuildVersion, runtime.GOOS, runtime.GOARCH)
}

// joinURLPath joins two URL paths with exactly one slash boundary.
func joinURLPath(basePath, addPath string) string {
	switch {
	case basePath == "" || basePath == "/":
		return addPath
	case addPath == "":
		return basePath
	case hasTrailingSlash(basePath) && hasLeadingSlash(addPath):
		return basePath + addPath[1:]
	case !hasTrailingSlash(basePath) && !hasLeadingSlash(addPath):
		return basePath + "/" + addPath
	default:
		return basePath + addPath
	}
}

func hasTrailingSlash(p string) bool { return len(p) > 0 && p[len(p)-1] == '/' }
func hasLeadingSlash(p string) bool  { return len(p) > 0 && p[0] == '/' }

func (c *Client) buildURL(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = joinURLPath(u.Path, path)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, fullURL string, body io.Reader) (*http.Request, error) {
	// If we've previously determined we are offline, short-circuit.
	if c.forceOffline.Load() {
		return nil, ErrOffline
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	// attach identity unless anonymous
	id, ok := IdentityFromContext(ctx)
	if !ok {
		id = c.defaultIdentity
	}
	if !id.Anonymous {
		if id.OrgUUID != "" {
			req.Header.Set("X-Org-Uuid", id.OrgUUID)
		}
		if id.ClientUUID != "" {
			req.Header.Set("X-Client-Uuid", id.ClientUUID)
		}
	}
	return req, nil
}

func decodeJSON[T any](r io.Reader, out *T) error {
	dec := json.NewDecoder(r)
	return dec.Decode(out)
}
