// Package testbackend runs an in-process SkillUp auth backend for tests, the
// load generator and the CLI demo mode.
//
// It issues real HS256 access tokens, keeps the refresh credential in an
// HTTP-only cookie and counts every call to the auth endpoints so tests can
// assert single-flight refresh behavior.
package testbackend

import (
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/session"
)

// DefaultSecret signs access tokens when Options.Secret is empty.
var DefaultSecret = []byte("skillup-test-secret")

// RefreshCookie is the name of the out-of-band refresh credential.
const RefreshCookie = "jwt"

// MinPasswordLength is the signup password policy enforced server-side.
const MinPasswordLength = 8

// ErrUserExists is returned by AddUser for a duplicate email or username.
var ErrUserExists = errors.New("user already exists")

// Options configures a Backend.
type Options struct {
	Secret    []byte
	AccessTTL time.Duration
	// RefreshCookiePath scopes the refresh cookie. Defaults to "/".
	RefreshCookiePath string
}

type account struct {
	profile session.Profile
	hash    string
}

type accessClaims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Backend is a fake SkillUp API server.
type Backend struct {
	server *httptest.Server
	secret     []byte
	ttl        time.Duration
	cookiePath string

	mu       sync.Mutex
	users    map[string]*account
	live     map[string]struct{}
	refresh  map[string]string
	resets   map[string]string
	authSeen []string

	refreshGate     chan struct{}
	failRefresh     bool
	failLogout      bool
	omitAccessToken bool
	rejectAll       bool

	signupCalls   atomic.Int64
	refreshCalls  atomic.Int64
	logoutCalls   atomic.Int64
	resourceCalls atomic.Int64
}

// New starts a Backend on a loopback listener. Close must be called.
func New(opts Options) *Backend {
	if len(opts.Secret) == 0 {
		opts.Secret = DefaultSecret
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshCookiePath == "" {
		opts.RefreshCookiePath = "/"
	}

	b := &Backend{
		secret:     opts.Secret,
		ttl:        opts.AccessTTL,
		cookiePath: opts.RefreshCookiePath,
		users:      make(map[string]*account),
		live:       make(map[string]struct{}),
		refresh:    make(map[string]string),
		resets:     make(map[string]string),
	}
	b.server = httptest.NewServer(b.routes())
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

func (b *Backend) Close() {
	b.server.Close()
}

// AddUser registers an account. The username and email must be unique.
func (b *Backend) AddUser(p session.Profile, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findLocked(p.Email) != nil || b.findLocked(p.Username) != nil {
		return ErrUserExists
	}
	b.users[p.Username] = &account{profile: p, hash: hash}
	return nil
}

// findLocked resolves an identifier that may be a username or an email.
func (b *Backend) findLocked(identifier string) *account {
	if a, ok := b.users[identifier]; ok {
		return a
	}
	for _, a := range b.users {
		if a.profile.Email == identifier {
			return a
		}
	}
	return nil
}

// ExpireAccessTokens invalidates every access token issued so far. Protected
// endpoints answer 401 until the client refreshes.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	b.live = make(map[string]struct{})
	b.mu.Unlock()
}

// BlockRefresh makes /auth/refresh wait until the returned release func is
// called. Release is idempotent.
func (b *Backend) BlockRefresh() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.refreshGate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.refreshGate == gate {
				b.refreshGate = nil
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

// FailRefresh makes /auth/refresh answer 401.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	b.failRefresh = fail
	b.mu.Unlock()
}

// FailLogout makes /auth/logout answer 500.
func (b *Backend) FailLogout(fail bool) {
	b.mu.Lock()
	b.failLogout = fail
	b.mu.Unlock()
}

// OmitAccessToken makes /auth/login answer 200 without an access token.
func (b *Backend) OmitAccessToken(omit bool) {
	b.mu.Lock()
	b.omitAccessToken = omit
	b.mu.Unlock()
}

// RejectAll makes every protected endpoint answer 401 regardless of the token.
func (b *Backend) RejectAll(reject bool) {
	b.mu.Lock()
	b.rejectAll = reject
	b.mu.Unlock()
}

func (b *Backend) SignupCalls() int64 {
	return b.signupCalls.Load()
}

func (b *Backend) RefreshCalls() int64 {
	return b.refreshCalls.Load()
}

func (b *Backend) LogoutCalls() int64 {
	return b.logoutCalls.Load()
}

func (b *Backend) ResourceCalls() int64 {
	return b.resourceCalls.Load()
}

// AuthorizationsSeen returns the Authorization headers received by protected
// endpoints, in arrival order.
func (b *Backend) AuthorizationsSeen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authSeen...)
}

// ResetTokenFor returns the pending password reset token for email.
func (b *Backend) ResetTokenFor(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok, username := range b.resets {
		if a := b.users[username]; a != nil && a.profile.Email == email {
			return tok
		}
	}
	return ""
}

func (b *Backend) issueLocked(p session.Profile) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	claims := accessClaims{
		Roles: []string{string(p.Role)},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", err
	}
	b.live[id] = struct{}{}
	return raw, nil
}

// RoleToken signs a token carrying role with DefaultSecret. It is not
// registered with any Backend and is meant for decode-only callers.
func RoleToken(role string, ttl time.Duration) string {
	now := time.Now()
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-" + role,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(DefaultSecret)
	if err != nil {
		panic(err)
	}
	return raw
}
