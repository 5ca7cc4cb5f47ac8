// Package warehouse implements the client for the remote warehouse services.
// Every configured store exposes the same endpoint family behind its own
// HTTP Basic credentials; payload shapes are inconsistent between endpoints
// and are returned raw for normalization upstream.
package warehouse

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wareline/resolve-core/internal/connector/rest"
	"github.com/wareline/resolve-core/internal/metrics"
	"github.com/wareline/resolve-core/internal/record"
)

// DefaultPageSize matches the search endpoints' usual page size.
const DefaultPageSize = 100

// clientIDHeader addresses the direct-id probe endpoints.
const clientIDHeader = "X-Client-Id"

// =============================================================================
// CLIENT
// =============================================================================

// Client performs authenticated calls against the warehouse services for any
// configured store. A miss (404, other non-2xx, missing credentials) is
// returned as (nil, nil): the caller cannot distinguish a real outage from a
// not-found at this layer. Context cancellation is the one distinguishable
// failure and propagates as an error.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	log       *zap.Logger

	mu      sync.Mutex
	clients map[string]*rest.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport injects an HTTP transport, used by tests to stub responses.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// NewClient creates a warehouse client for the given API base URL.
func NewClient(baseURL string, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: baseURL,
		log:     log,
		clients: make(map[string]*rest.Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// clientFor returns the per-store REST client, building it on first use so
// each store gets its own rate limiter and credential pair.
func (c *Client) clientFor(store Store) *rest.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rc, ok := c.clients[store.Name]; ok {
		return rc
	}

	cfg := rest.DefaultClientConfig()
	cfg.BaseURL = c.baseURL
	cfg.Auth = rest.BasicAuth{Username: store.Key, Password: store.Secret}
	cfg.Headers["Accept"] = "application/json"
	cfg.Transport = c.transport

	rc := rest.NewClient(cfg)
	c.clients[store.Name] = rc
	return rc
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// DirectProbe hits the direct-id endpoint, which returns an exact record for
// a client-supplied order id or 404.
func (c *Client) DirectProbe(ctx context.Context, store Store, dir record.Direction, clientID string) (map[string]any, error) {
	return c.fetchObject(ctx, store, dir.Path()+"/0", nil, map[string]string{clientIDHeader: clientID})
}

// Detail fetches one record's full detail and event history by internal id.
func (c *Client) Detail(ctx context.Context, store Store, dir record.Direction, internalID string) (map[string]any, error) {
	return c.fetchObject(ctx, store, dir.Path()+"/"+internalID, nil, nil)
}

// Search runs the keyword search endpoint constrained to a date window and
// returns the first page of summaries. Summaries lack event history; use
// Detail for the full record.
func (c *Client) Search(ctx context.Context, store Store, dir record.Direction, term string, from, to time.Time, pageSize int) ([]map[string]any, error) {
	query := windowQuery(from, to, pageSize)
	query.Set("search", term)
	return c.fetchList(ctx, store, dir, query)
}

// List runs the bulk list endpoint for a date window with no search term,
// used by reconciliation pulls.
func (c *Client) List(ctx context.Context, store Store, dir record.Direction, from, to time.Time, pageSize int) ([]map[string]any, error) {
	return c.fetchList(ctx, store, dir, windowQuery(from, to, pageSize))
}

func windowQuery(from, to time.Time, pageSize int) url.Values {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	query := url.Values{}
	query.Set("startDate", record.FormatWindow(from))
	query.Set("endDate", record.FormatWindow(to))
	query.Set("pageSize", strconv.Itoa(pageSize))
	return query
}

// =============================================================================
// FETCH HELPERS
// =============================================================================

func (c *Client) fetchObject(ctx context.Context, store Store, path string, query url.Values, headers map[string]string) (map[string]any, error) {
	body, err := c.fetch(ctx, store, path, query, headers)
	if err != nil || body == nil {
		return nil, err
	}

	var payload map[string]any
	if jsonErr := body.JSON(&payload); jsonErr != nil {
		c.log.Warn("unparseable warehouse payload",
			zap.String("store", store.Name), zap.String("path", path), zap.Error(jsonErr))
		return nil, nil
	}
	metrics.RemoteCallsTotal.WithLabelValues(store.Name, "hit").Inc()
	return payload, nil
}

func (c *Client) fetchList(ctx context.Context, store Store, dir record.Direction, query url.Values) ([]map[string]any, error) {
	body, err := c.fetch(ctx, store, dir.Path(), query, nil)
	if err != nil || body == nil {
		return nil, err
	}

	// List endpoints wrap the page under a direction-named key.
	var page map[string]any
	if jsonErr := body.JSON(&page); jsonErr != nil {
		c.log.Warn("unparseable warehouse page",
			zap.String("store", store.Name), zap.String("direction", string(dir)), zap.Error(jsonErr))
		return nil, nil
	}

	raw, _ := page[dir.Path()].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			items = append(items, m)
		}
	}
	metrics.RemoteCallsTotal.WithLabelValues(store.Name, "hit").Inc()
	return items, nil
}

// fetch issues one authenticated GET. It returns (nil, nil) for every kind
// of miss, a non-nil response on 2xx, and an error only for transport
// failures and cancellation.
func (c *Client) fetch(ctx context.Context, store Store, path string, query url.Values, headers map[string]string) (*rest.Response, error) {
	if !store.HasCredentials() {
		metrics.RemoteCallsTotal.WithLabelValues(store.Name, "skipped").Inc()
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.clientFor(store).Get(ctx, path, query, headers)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		var httpErr *rest.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.IsNotFound() {
				metrics.RemoteCallsTotal.WithLabelValues(store.Name, "miss").Inc()
				return nil, nil
			}
			// Known limitation: a real outage is indistinguishable from a
			// miss for the caller. The status and body excerpt go to the log.
			c.log.Warn("warehouse call failed",
				zap.String("store", store.Name),
				zap.String("path", path),
				zap.Int("status", httpErr.StatusCode),
				zap.String("body", excerpt(httpErr.Message)))
			metrics.RemoteCallsTotal.WithLabelValues(store.Name, "error").Inc()
			return nil, nil
		}

		metrics.RemoteCallsTotal.WithLabelValues(store.Name, "error").Inc()
		return nil, err
	}

	return resp, nil
}

func excerpt(s string) string {
	const max = 120
	if len(s) > max {
		return s[:max]
	}
	return s
}
