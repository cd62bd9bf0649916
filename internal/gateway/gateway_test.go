package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/internal/testbackend"
	"github.com/MrEthical07/goSession/session"
)

const testPassword = "correct-horse-battery"

type gatewayHarness struct {
	backend  *testbackend.Backend
	store    *session.Store
	gw       *Gateway
	metrics  *metrics.Metrics
	failures atomic.Int64
}

func newGatewayHarness(t *testing.T, mutate func(*Deps)) *gatewayHarness {
	t.Helper()

	b := testbackend.New(testbackend.Options{})
	t.Cleanup(b.Close)

	if err := b.AddUser(session.Profile{
		Email:    "ada@skillup.dev",
		Username: "ada",
		Name:     session.Name{FirstName: "Ada", LastName: "Lovelace"},
		Role:     session.RoleLearner,
	}, testPassword); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}

	h := &gatewayHarness{
		backend: b,
		store:   session.NewStore(session.NewMemoryStorage()),
		metrics: metrics.New(metrics.Config{Enabled: true, EnableLatencyHistograms: true}),
	}
	deps := Deps{
		Store:   h.store,
		Metrics: h.metrics,
		OnRefreshFailure: func(ctx context.Context) {
			h.failures.Add(1)
			_ = h.store.Clear(ctx)
		},
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.gw = New(resty.New().SetBaseURL(b.URL()), deps)
	return h
}

func (h *gatewayHarness) login(t *testing.T) string {
	t.Helper()

	resp, err := h.gw.DoRaw(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"identifier": "ada", "password": testPassword},
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	var body struct {
		User        session.Profile `json:"user"`
		AccessToken string          `json:"accessToken"`
	}
	if err := resp.Decode(&body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if err := h.store.SetSession(context.Background(), &body.User, body.AccessToken); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	return body.AccessToken
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

var coursesRequest = Request{Method: http.MethodGet, Path: "/courses"}

func TestConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	h := newGatewayHarness(t, nil)
	oldToken := h.login(t)
	h.backend.ExpireAccessTokens()
	release := h.backend.BlockRefresh()
	defer release()

	const n = 8
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			_, err := h.gw.Do(context.Background(), coursesRequest)
			return err
		})
	}

	waitFor(t, "queued requests", func() bool {
		return h.backend.RefreshCalls() == 1 && h.gw.Waiting() == n-1
	})
	release()

	if err := eg.Wait(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}

	newToken := h.store.AccessToken()
	if newToken == "" || newToken == oldToken {
		t.Fatal("expected store to hold the refreshed token")
	}
	seen := h.backend.AuthorizationsSeen()
	if len(seen) != 2*n {
		t.Fatalf("expected %d protected calls, got %d", 2*n, len(seen))
	}
	retried := 0
	for _, header := range seen {
		if header == "Bearer "+newToken {
			retried++
		}
	}
	if retried != n {
		t.Fatalf("expected %d retries with the new token, got %d", n, retried)
	}
	if got := h.metrics.Value(metrics.MetricRefreshQueued); got != n-1 {
		t.Fatalf("expected %d queued requests, got %d", n-1, got)
	}
	if h.gw.Refreshing() {
		t.Fatal("refresh lock must return to idle")
	}
}

func TestRetriedRequestIsNotRetriedAgain(t *testing.T) {
	h := newGatewayHarness(t, nil)
	h.login(t)
	h.backend.RejectAll(true)

	resp, err := h.gw.Do(context.Background(), coursesRequest)

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatal("expected the final 401 response to be returned")
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("expected one refresh call, got %d", got)
	}
	if got := h.backend.ResourceCalls(); got != 2 {
		t.Fatalf("expected original send plus one retry, got %d", got)
	}
	if got := h.metrics.Value(metrics.MetricRequestUnauthorized); got != 1 {
		t.Fatalf("expected unauthorized metric 1, got %d", got)
	}
}

func TestRefreshFailureRejectsQueueAndClearsSession(t *testing.T) {
	h := newGatewayHarness(t, nil)
	h.login(t)
	h.backend.ExpireAccessTokens()
	h.backend.FailRefresh(true)
	release := h.backend.BlockRefresh()
	defer release()

	const n = 5
	var sawSession atomic.Int64
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := h.gw.Do(context.Background(), coursesRequest)
			if !h.store.Get().Empty() {
				sawSession.Add(1)
			}
			errs <- err
		}()
	}

	waitFor(t, "queued requests", func() bool {
		return h.backend.RefreshCalls() == 1 && h.gw.Waiting() == n-1
	})
	release()

	for i := 0; i < n; i++ {
		if err := <-errs; !errors.Is(err, ErrRefreshFailed) {
			t.Fatalf("expected refresh failure, got %v", err)
		}
	}
	if sawSession.Load() != 0 {
		t.Fatal("a rejected request observed a live session")
	}
	if !h.store.Get().Empty() {
		t.Fatal("expected empty session after refresh failure")
	}
	if got := h.failures.Load(); got != 1 {
		t.Fatalf("expected failure hook once, got %d", got)
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("expected one refresh call, got %d", got)
	}
}

func TestRefreshUnauthorizedIsNotIntercepted(t *testing.T) {
	h := newGatewayHarness(t, nil)
	h.login(t)
	h.backend.FailRefresh(true)

	_, err := h.gw.Refresh(context.Background())

	var se *StatusError
	if !errors.Is(err, ErrRefreshFailed) || !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped 401 refresh failure, got %v", err)
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("expected one refresh call, got %d", got)
	}
}

type staleStore struct {
	*session.Store
	first string
	used  atomic.Bool
}

func (s *staleStore) AccessToken() string {
	if s.used.CompareAndSwap(false, true) {
		return s.first
	}
	return s.Store.AccessToken()
}

func TestStaleTokenReplayedWithoutRefresh(t *testing.T) {
	stale := &staleStore{}
	h := newGatewayHarness(t, func(d *Deps) { d.Store = stale })
	stale.Store = h.store
	stale.used.Store(true)

	oldToken := h.login(t)
	h.backend.ExpireAccessTokens()
	if _, err := h.gw.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	stale.first = oldToken
	stale.used.Store(false)

	if _, err := h.gw.Do(context.Background(), coursesRequest); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("expected no further refresh, got %d calls", got)
	}
	if got := h.metrics.Value(metrics.MetricStaleTokenReplay); got != 1 {
		t.Fatalf("expected one stale replay, got %d", got)
	}
}

func TestRefreshTimeoutCountsAsFailure(t *testing.T) {
	h := newGatewayHarness(t, func(d *Deps) { d.RefreshTimeout = 50 * time.Millisecond })
	h.login(t)
	h.backend.ExpireAccessTokens()
	release := h.backend.BlockRefresh()
	defer release()

	_, err := h.gw.Do(context.Background(), coursesRequest)
	if !errors.Is(err, ErrRefreshFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected refresh timeout failure, got %v", err)
	}
	if !h.store.Get().Empty() {
		t.Fatal("expected session cleared after refresh timeout")
	}
	if h.gw.Refreshing() {
		t.Fatal("refresh lock must return to idle")
	}
}

func TestQueuedWaiterHonorsContext(t *testing.T) {
	h := newGatewayHarness(t, nil)
	h.login(t)
	release := h.backend.BlockRefresh()
	defer release()

	leader := make(chan error, 1)
	go func() {
		_, err := h.gw.Refresh(context.Background())
		leader <- err
	}()
	waitFor(t, "refresh start", func() bool { return h.backend.RefreshCalls() == 1 })

	ctx, cancel := context.WithCancel(context.Background())
	waiter := make(chan error, 1)
	go func() {
		_, err := h.gw.Refresh(ctx)
		waiter <- err
	}()
	waitFor(t, "waiter", func() bool { return h.gw.Waiting() == 1 })

	cancel()
	if err := <-waiter; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled waiter, got %v", err)
	}

	release()
	if err := <-leader; err != nil {
		t.Fatalf("leader refresh failed: %v", err)
	}
	if h.gw.Waiting() != 0 || h.gw.Refreshing() {
		t.Fatal("expected idle gateway after refresh")
	}
}

func TestNonUnauthorizedStatusPropagates(t *testing.T) {
	h := newGatewayHarness(t, nil)
	h.login(t)

	_, err := h.gw.Do(context.Background(), Request{Method: http.MethodGet, Path: "/admin/stats"})

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 status error, got %v", err)
	}
	if h.backend.RefreshCalls() != 0 {
		t.Fatal("403 must not trigger a refresh")
	}
}

func TestOutboundHookAttachesStoredTokenAndRequestID(t *testing.T) {
	var gotAuth, gotID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotID.Store(r.Header.Get(RequestIDHeader))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := session.NewStore(session.NewMemoryStorage())
	gw := New(resty.New().SetBaseURL(srv.URL), Deps{Store: store})

	if _, err := gw.Do(context.Background(), coursesRequest); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if auth := gotAuth.Load().(string); auth != "" {
		t.Fatalf("expected unauthenticated request, got %q", auth)
	}

	user := &session.Profile{Username: "ada", Role: session.RoleLearner}
	if err := store.SetSession(context.Background(), user, "tok-1"); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if _, err := gw.Do(context.Background(), coursesRequest); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if auth := gotAuth.Load().(string); auth != "Bearer tok-1" {
		t.Fatalf("expected bearer token, got %q", auth)
	}
	if id := gotID.Load().(string); len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("expected uuid request id, got %q", id)
	}
}

func TestTransportErrorPropagatesUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw := New(resty.New().SetBaseURL(url), Deps{Store: session.NewStore(session.NewMemoryStorage())})
	_, err := gw.Do(context.Background(), coursesRequest)

	var se *StatusError
	if err == nil || errors.As(err, &se) || errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected raw transport error, got %v", err)
	}
}
