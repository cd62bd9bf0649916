package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/goSession/internal/testbackend"
	"github.com/MrEthical07/goSession/session"
)

const testPassword = "correct-horse-battery"

type cliHarness struct {
	backend *testbackend.Backend
	state   string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	return newCLIHarnessWith(t, testbackend.Options{})
}

func newCLIHarnessWith(t *testing.T, opts testbackend.Options) *cliHarness {
	t.Helper()
	b := testbackend.New(opts)
	t.Cleanup(b.Close)
	if err := b.AddUser(session.Profile{
		Email:    "ada@skillup.dev",
		Username: "ada",
		Name:     session.Name{FirstName: "Ada", LastName: "Lovelace"},
		Role:     session.RoleAdmin,
	}, testPassword); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	return &cliHarness{backend: b, state: t.TempDir()}
}

// run executes one CLI invocation, like a separate process would.
func (h *cliHarness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--base-url", h.backend.URL(), "--state", h.state}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run(t, testPassword+"\n", "login", "ada")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "logged in as ada (admin)") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, err = h.run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	if !strings.Contains(out, `"username": "ada"`) || !strings.Contains(out, `"home": "/admin/dashboard"`) {
		t.Fatalf("unexpected whoami output: %q", out)
	}

	out, err = h.run(t, "", "authorize", "/admin/users")
	if err != nil || strings.TrimSpace(out) != "allow" {
		t.Fatalf("authorize = %q, %v", out, err)
	}
}

func TestRequestRefreshesWithSavedCookie(t *testing.T) {
	h := newCLIHarness(t)
	if _, err := h.run(t, "", "login", "ada", "--password", testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	h.backend.ExpireAccessTokens()
	out, err := h.run(t, "", "request", "GET", "/admin/stats")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if out == "" {
		t.Fatal("expected a response body")
	}
	if h.backend.RefreshCalls() != 1 {
		t.Fatalf("expected 1 refresh call, got %d", h.backend.RefreshCalls())
	}
}

func TestPathScopedRefreshCookieSurvivesInvocations(t *testing.T) {
	h := newCLIHarnessWith(t, testbackend.Options{RefreshCookiePath: "/auth/refresh"})
	if _, err := h.run(t, "", "login", "ada", "--password", testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(h.state, cookieFileName))
	if err != nil {
		t.Fatalf("read cookie file: %v", err)
	}
	if !strings.Contains(string(data), `"path":"/auth/refresh"`) {
		t.Fatalf("refresh cookie not saved with its path: %s", data)
	}

	h.backend.ExpireAccessTokens()
	if _, err := h.run(t, "", "request", "GET", "/admin/stats"); err != nil {
		t.Fatalf("request after expiry failed: %v", err)
	}
	if h.backend.RefreshCalls() != 1 {
		t.Fatalf("expected 1 refresh call, got %d", h.backend.RefreshCalls())
	}
}

func TestLogoutThenAuthorizeRedirectsToLogin(t *testing.T) {
	h := newCLIHarness(t)
	if _, err := h.run(t, "", "login", "ada", "-p", testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := h.run(t, "", "logout"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	out, err := h.run(t, "", "authorize", "/admin", "--role", "admin")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if strings.TrimSpace(out) != "redirect /auth" {
		t.Fatalf("authorize = %q", out)
	}

	if _, err := h.run(t, "", "refresh"); err == nil {
		t.Fatal("refresh after logout must fail")
	}
}

func TestLoginFailureReportsBackendMessage(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run(t, "", "login", "ada", "-p", "wrong")
	if err == nil || err.Error() != "Incorrect email or password" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestRedisMemoryStorage(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.run(t, "", "--redis-addr", "memory", "login", "ada", "-p", testPassword)
	if err != nil {
		t.Fatalf("login with miniredis failed: %v", err)
	}
	if !strings.Contains(out, "logged in as ada") {
		t.Fatalf("unexpected output %q", out)
	}
}
