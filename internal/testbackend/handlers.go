package testbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/session"
)

type ctxKey struct{}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", b.handleLogin)
		r.Post("/signup", b.handleSignup)
		r.Post("/refresh", b.handleRefresh)
		r.Post("/logout", b.handleLogout)
		r.Post("/forgot-password", b.handleForgotPassword)
		r.Post("/reset-password/{token}", b.handleResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(b.bearerAuth)
		r.Get("/me", b.handleMe)
		r.Get("/courses", b.handleCourses)
		r.With(requireRole(session.RoleAdmin)).Get("/admin/stats", b.handleAdminStats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrors answers with the backend's {"errors": ...} envelope. errs is
// either a string or a field to messages map.
func writeErrors(w http.ResponseWriter, status int, errs any) {
	writeJSON(w, status, map[string]any{"errors": errs})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeErrors(w, http.StatusBadRequest, map[string][]string{
			"identifier": {"identifier is required"},
			"password":   {"password is required"},
		})
		return
	}

	var hash string
	b.mu.Lock()
	acct := b.findLocked(req.Identifier)
	if acct != nil {
		hash = acct.hash
	}
	b.mu.Unlock()
	if acct == nil {
		writeErrors(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	ok, err := verifyPassword(req.Password, hash)
	if err != nil || !ok {
		writeErrors(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.omitAccessToken {
		writeJSON(w, http.StatusOK, map[string]any{"user": acct.profile})
		return
	}
	access, err := b.issueLocked(acct.profile)
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	refreshID := uuid.NewString()
	b.refresh[refreshID] = acct.profile.Username

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    refreshID,
		Path:     b.cookiePath,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        acct.profile,
		"accessToken": access,
	})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	b.signupCalls.Add(1)
	var req struct {
		FirstName string   `json:"firstName"`
		LastName  string   `json:"lastName"`
		Username  string   `json:"username"`
		Email     string   `json:"email"`
		Password  string   `json:"password"`
		Avatar    string   `json:"avatar"`
		Roles     []string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Roles) != 1 {
		writeErrors(w, http.StatusBadRequest, map[string][]string{"roles": {"exactly one role is required"}})
		return
	}

	fieldErrs := map[string][]string{}
	if len(req.Password) < MinPasswordLength {
		fieldErrs["password"] = []string{fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}

	b.mu.Lock()
	if b.findLocked(req.Email) != nil {
		fieldErrs["email"] = []string{"already taken"}
	}
	if _, ok := b.users[req.Username]; ok {
		fieldErrs["username"] = []string{"already taken"}
	}
	b.mu.Unlock()
	if len(fieldErrs) > 0 {
		writeErrors(w, http.StatusBadRequest, fieldErrs)
		return
	}

	profile := session.Profile{
		Email:    req.Email,
		Username: req.Username,
		Name:     session.Name{FirstName: req.FirstName, LastName: req.LastName},
		Role:     session.Role(req.Roles[0]),
		Avatar:   req.Avatar,
	}
	if err := b.AddUser(profile, req.Password); err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": profile})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	b.mu.Lock()
	gate := b.refreshGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failRefresh {
		writeErrors(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	cookie, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeErrors(w, http.StatusUnauthorized, "No refresh token")
		return
	}
	username, ok := b.refresh[cookie.Value]
	acct := b.users[username]
	if !ok || acct == nil {
		writeErrors(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	access, err := b.issueLocked(acct.profile)
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.logoutCalls.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failLogout {
		writeErrors(w, http.StatusInternalServerError, "logout unavailable")
		return
	}
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		delete(b.refresh, cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     b.cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeErrors(w, http.StatusBadRequest, map[string][]string{"email": {"email is required"}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.findLocked(req.Email)
	if acct == nil || acct.profile.Email != req.Email {
		writeErrors(w, http.StatusNotFound, "There is no user with that email address.")
		return
	}
	b.resets[uuid.NewString()] = acct.profile.Username
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token sent to email!"})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password != req.PasswordConfirm {
		writeErrors(w, http.StatusBadRequest, map[string][]string{"passwordConfirm": {"Passwords are not the same"}})
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, "hash failed")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	username, ok := b.resets[token]
	acct := b.users[username]
	if !ok || acct == nil {
		writeErrors(w, http.StatusBadRequest, "Token is invalid or has expired")
		return
	}
	delete(b.resets, token)
	acct.hash = hash
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (b *Backend) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.resourceCalls.Add(1)
		header := r.Header.Get("Authorization")

		b.mu.Lock()
		b.authSeen = append(b.authSeen, header)
		reject := b.rejectAll
		b.mu.Unlock()

		raw, found := strings.CutPrefix(header, "Bearer ")
		if reject || !found || raw == "" {
			writeErrors(w, http.StatusUnauthorized, "Not authorized")
			return
		}

		claims := &accessClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeErrors(w, http.StatusUnauthorized, "Not authorized")
			return
		}

		b.mu.Lock()
		_, live := b.live[claims.ID]
		acct := b.users[claims.Subject]
		b.mu.Unlock()
		if !live || acct == nil {
			writeErrors(w, http.StatusUnauthorized, "Token expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acct.profile)))
	})
}

func requireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := r.Context().Value(ctxKey{}).(session.Profile)
			if p.Role != role {
				writeErrors(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := r.Context().Value(ctxKey{}).(session.Profile)
	writeJSON(w, http.StatusOK, map[string]any{"user": p})
}

func (b *Backend) handleCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"courses": []map[string]string{
			{"id": "go-101", "title": "Concurrency in Go"},
			{"id": "web-201", "title": "Building Web APIs"},
		},
	})
}

func (b *Backend) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	users := len(b.users)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"users": users})
}
