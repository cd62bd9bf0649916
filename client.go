package goSession

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/MrEthical07/goSession/guard"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/gateway"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// Client owns one user session against one backend.
type Client struct {
	config   Config
	store    *session.Store
	gateway  *gateway.Gateway
	guard    *guard.Authorizer
	routes   *guard.Table
	validate *validator.Validate
	metrics  *internalmetrics.Metrics
	audit    *internalaudit.Dispatcher
	logger   *slog.Logger

	uiMu    sync.RWMutex
	lastErr string
	loading atomic.Int32
}

// Close flushes pending audit events. The Client must not be used afterwards.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.audit.Close()
}

// Config returns a copy of the configuration the Client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// Store exposes the session container, for subscriptions and tests.
func (c *Client) Store() *session.Store {
	return c.store
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	return c.store.Get()
}

// IsAuthenticated reports whether a user is logged in.
func (c *Client) IsAuthenticated() bool {
	return c.store.Get().Authenticated()
}

// Role returns the primary role carried by the current access token, or ""
// when there is no decodable token.
func (c *Client) Role() Role {
	return Role(token.RoleOf(c.store.AccessToken()))
}

// Claims decodes the current access token without verifying it.
func (c *Client) Claims() (*token.Claims, bool) {
	return token.Decode(c.store.AccessToken())
}

// UpdateUser merges patch into the current profile. It is a no-op without a
// user.
func (c *Client) UpdateUser(ctx context.Context, patch ProfilePatch) error {
	return c.store.UpdateUser(ctx, patch)
}

// Subscribe registers fn for every session change.
func (c *Client) Subscribe(fn func(Session)) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

/*
====================================
UI STATE
====================================
*/

// LastError is the message of the latest failed auth operation, or "".
func (c *Client) LastError() string {
	c.uiMu.RLock()
	defer c.uiMu.RUnlock()
	return c.lastErr
}

// ClearError resets LastError.
func (c *Client) ClearError() {
	c.setLastError("")
}

// Loading reports whether an auth operation is in progress.
func (c *Client) Loading() bool {
	return c.loading.Load() > 0
}

func (c *Client) setLastError(msg string) {
	c.uiMu.Lock()
	c.lastErr = msg
	c.uiMu.Unlock()
}

// begin marks an auth operation as started and clears the previous error.
func (c *Client) begin() (done func()) {
	c.loading.Add(1)
	c.setLastError("")
	return func() { c.loading.Add(-1) }
}

/*
====================================
ROUTE AUTHORIZATION
====================================
*/

// Authorize checks the current session against allowed roles.
func (c *Client) Authorize(allowed ...Role) Decision {
	return c.guard.Authorize(c.store.Get(), allowed...)
}

// RequireAuthenticated checks only that a user is logged in.
func (c *Client) RequireAuthenticated() Decision {
	return c.guard.RequireAuthenticated(c.store.Get())
}

// AuthorizePath checks the current session against the route table.
func (c *Client) AuthorizePath(path string) Decision {
	return c.guard.AuthorizePath(c.routes, c.store.Get(), path)
}

// HomePath returns the dashboard of the current role.
func (c *Client) HomePath() string {
	return c.guard.HomePath(c.Role())
}

// Authorizer returns the route authorizer, for HTTP middleware.
func (c *Client) Authorizer() *guard.Authorizer {
	return c.guard
}

/*
====================================
API REQUESTS
====================================
*/

// Do sends req with the session's bearer token. A 401 triggers the shared
// refresh and a single retry.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.gateway.Do(ctx, req)
}

// Get is Do with GET and optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.gateway.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post is Do with POST and a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.gateway.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put is Do with PUT and a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.gateway.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch is Do with PATCH and a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.gateway.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete is Do with DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.gateway.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

/*
====================================
METRICS
====================================
*/

// MetricsSnapshot copies the current counters and histograms. It is empty
// when metrics are disabled.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}
