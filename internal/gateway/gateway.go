package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/internal/metrics"
)

const (
	// RequestIDHeader is stamped on every outgoing request.
	RequestIDHeader = "X-Request-ID"

	DefaultRefreshPath    = "/auth/refresh"
	DefaultRefreshTimeout = 15 * time.Second
)

var (
	// ErrRefreshFailed wraps every refresh failure, including timeouts.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNoAccessToken reports a 2xx auth response without an access token.
	ErrNoAccessToken = errors.New("no access token received")
)

// TokenStore is the session state the gateway reads and writes.
type TokenStore interface {
	AccessToken() string
	SetAccessToken(ctx context.Context, token string) error
}

// Deps captures gateway dependencies.
type Deps struct {
	Store          TokenStore
	RefreshPath    string
	RefreshTimeout time.Duration
	// OnRefreshFailure runs once per failed refresh, before queued requests
	// are rejected. It must not send requests through Do.
	OnRefreshFailure func(context.Context)
	OnRefreshSuccess func(context.Context)
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
}

// Gateway is safe for concurrent use.
type Gateway struct {
	http        *resty.Client
	store       TokenStore
	refreshPath string
	timeout     time.Duration
	onFailure   func(context.Context)
	onSuccess   func(context.Context)
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu         sync.Mutex
	refreshing bool
	queue      waitQueue
}

// New wires the outbound hook into client and returns a Gateway sending
// through it.
func New(client *resty.Client, deps Deps) *Gateway {
	if deps.RefreshPath == "" {
		deps.RefreshPath = DefaultRefreshPath
	}
	if deps.RefreshTimeout <= 0 {
		deps.RefreshTimeout = DefaultRefreshTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	g := &Gateway{
		http:        client,
		store:       deps.Store,
		refreshPath: deps.RefreshPath,
		timeout:     deps.RefreshTimeout,
		onFailure:   deps.OnRefreshFailure,
		onSuccess:   deps.OnRefreshSuccess,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
	client.OnBeforeRequest(g.beforeRequest)
	return g
}

// beforeRequest attaches the stored token unless the attempt pinned one.
func (g *Gateway) beforeRequest(_ *resty.Client, r *resty.Request) error {
	if r.Token == "" && g.store != nil {
		if tok := g.store.AccessToken(); tok != "" {
			r.SetAuthToken(tok)
		}
	}
	if r.Header.Get(RequestIDHeader) == "" {
		r.SetHeader(RequestIDHeader, uuid.NewString())
	}
	return nil
}

// Do sends req. A 401 triggers at most one refresh-and-retry. Non-2xx
// responses are returned together with a *StatusError.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	a := attempt{req: req}
	for {
		resp, sent, err := g.send(ctx, a)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, checkStatus(resp)
		}
		if a.retried {
			g.metrics.Inc(metrics.MetricRequestUnauthorized)
			return resp, checkStatus(resp)
		}

		token, err := g.tokenAfterUnauthorized(ctx, sent)
		if err != nil {
			return nil, err
		}
		a.retried = true
		a.token = token
		g.metrics.Inc(metrics.MetricRequestRetried)
	}
}

// DoRaw sends req once without 401 interception.
func (g *Gateway) DoRaw(ctx context.Context, req Request) (*Response, error) {
	resp, _, err := g.send(ctx, attempt{req: req})
	if err != nil {
		return nil, err
	}
	return resp, checkStatus(resp)
}

// Refresh obtains a new access token, joining the in-flight refresh when
// there is one.
func (g *Gateway) Refresh(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.refreshing {
		ch := g.queue.push()
		g.mu.Unlock()
		return g.wait(ctx, ch)
	}
	g.refreshing = true
	g.mu.Unlock()

	return g.lead(ctx)
}

// Refreshing reports whether a refresh call is outstanding.
func (g *Gateway) Refreshing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshing
}

// Waiting returns the number of requests parked on the in-flight refresh.
func (g *Gateway) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.len()
}

// tokenAfterUnauthorized decides how a first 401 proceeds. The refreshing
// check, the stale-token check and the transition into refreshing happen in
// one critical section.
func (g *Gateway) tokenAfterUnauthorized(ctx context.Context, sent string) (string, error) {
	g.mu.Lock()
	if g.refreshing {
		ch := g.queue.push()
		g.mu.Unlock()
		return g.wait(ctx, ch)
	}
	// A refresh finished after this request left with an older token.
	if cur := g.store.AccessToken(); cur != "" && cur != sent {
		g.mu.Unlock()
		g.metrics.Inc(metrics.MetricStaleTokenReplay)
		return cur, nil
	}
	g.refreshing = true
	g.mu.Unlock()

	return g.lead(ctx)
}

func (g *Gateway) wait(ctx context.Context, ch <-chan outcome) (string, error) {
	g.metrics.Inc(metrics.MetricRefreshQueued)
	select {
	case o := <-ch:
		return o.token, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// lead runs the refresh call. The caller must have set refreshing.
func (g *Gateway) lead(ctx context.Context) (string, error) {
	start := time.Now()
	// Waiters share this call, so it outlives the leader's cancellation and is
	// bounded by the refresh timeout instead.
	detached := context.WithoutCancel(ctx)
	rctx, cancel := context.WithTimeout(detached, g.timeout)
	token, err := g.callRefresh(rctx)
	cancel()
	g.metrics.Observe(metrics.MetricRefreshLatency, time.Since(start))

	if err != nil {
		g.metrics.Inc(metrics.MetricRefreshFailure)
		if g.onFailure != nil {
			g.onFailure(detached)
		}
		n := g.release(outcome{err: err})
		g.logger.Warn("access token refresh failed", "error", err, "rejected", n)
		return "", err
	}

	if serr := g.store.SetAccessToken(detached, token); serr != nil {
		g.logger.Warn("refreshed access token not persisted", "error", serr)
	}
	g.metrics.Inc(metrics.MetricRefreshSuccess)
	if g.onSuccess != nil {
		g.onSuccess(detached)
	}
	n := g.release(outcome{token: token})
	g.logger.Debug("access token refreshed", "released", n, "elapsed", time.Since(start))
	return token, nil
}

// release drains the queue in FIFO order and returns the lock to idle.
func (g *Gateway) release(o outcome) int {
	g.mu.Lock()
	waiters := g.queue.take()
	g.refreshing = false
	g.mu.Unlock()

	settle(waiters, o)
	return len(waiters)
}

func (g *Gateway) callRefresh(ctx context.Context) (string, error) {
	resp, err := g.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   g.refreshPath,
		Body:   struct{}{},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrNoAccessToken)
	}
	return body.AccessToken, nil
}

func (g *Gateway) send(ctx context.Context, a attempt) (*Response, string, error) {
	r := g.http.R().SetContext(ctx)
	if a.token != "" {
		r.SetAuthToken(a.token)
	}
	if len(a.req.Query) > 0 {
		r.SetQueryParamsFromValues(a.req.Query)
	}
	for k, vs := range a.req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if a.req.Body != nil {
		r.SetBody(a.req.Body)
	}

	method := a.req.Method
	if method == "" {
		method = http.MethodGet
	}
	res, err := r.Execute(method, a.req.Path)
	if err != nil {
		return nil, "", err
	}

	return &Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       res.Body(),
	}, r.Token, nil
}
