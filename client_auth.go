package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/internal/gateway"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
)

const (
	opLogin          = "login"
	opSignup         = "signup"
	opForgotPassword = "forgot_password"
	opResetPassword  = "reset_password"
)

type loginPayload struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type signupPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Avatar    string `json:"avatar,omitempty"`
	Roles     []Role `json:"roles"`
}

// Login authenticates identifier (email or username) and stores the returned
// session. On failure the existing session, if any, is left untouched and the
// returned *AuthError carries a display message that is also kept in
// LastError.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Profile, error) {
	done := c.begin()
	defer done()

	resp, err := c.gateway.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.API.LoginPath,
		Body:   loginPayload{Identifier: identifier, Password: password},
	})
	if err != nil {
		return nil, c.loginFailed(ctx, c.authFailure(opLogin, err, c.config.Messages.LoginFailed))
	}

	var body struct {
		User        *Profile `json:"user"`
		AccessToken string   `json:"accessToken"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, c.loginFailed(ctx, &AuthError{
			Op:         opLogin,
			Message:    c.config.Messages.MalformedResponse,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %w", ErrMalformedResponse, err),
		})
	}
	if body.AccessToken == "" {
		return nil, c.loginFailed(ctx, &AuthError{
			Op:         opLogin,
			Message:    c.config.Messages.NoAccessToken,
			StatusCode: resp.StatusCode,
			Err:        ErrNoAccessToken,
		})
	}
	if body.User == nil {
		return nil, c.loginFailed(ctx, &AuthError{
			Op:         opLogin,
			Message:    c.config.Messages.MalformedResponse,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: no user profile", ErrMalformedResponse),
		})
	}

	// Persistence failures are logged by the store; the in-memory session
	// stays authoritative.
	_ = c.store.SetSession(ctx, body.User, body.AccessToken)

	c.metrics.Inc(internalmetrics.MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, true, nil, nil)
	c.logger.Info("logged in", "username", body.User.Username, "role", c.Role())

	profile := *body.User
	return &profile, nil
}

func (c *Client) loginFailed(ctx context.Context, ae *AuthError) error {
	c.setLastError(ae.Message)
	c.metrics.Inc(internalmetrics.MetricLoginFailure)
	c.emitAudit(ctx, auditEventLoginFailure, false, ae, nil)
	c.logger.Info("login failed", "status", ae.StatusCode, "error", ae.Err)
	return ae
}

// SignUp registers a new account with a single role. It never logs in.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) error {
	done := c.begin()
	defer done()

	if err := c.validate.Struct(req); err != nil {
		return c.signupFailed(ctx, &AuthError{
			Op:      opSignup,
			Message: validationMessage(err),
			Err:     fmt.Errorf("%w: %w", ErrSignupInvalid, err),
		})
	}

	_, err := c.gateway.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.API.SignupPath,
		Body: signupPayload{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			Avatar:    req.Avatar,
			Roles:     []Role{req.Role},
		},
	})
	if err != nil {
		return c.signupFailed(ctx, c.authFailure(opSignup, err, c.config.Messages.SignupFailed))
	}

	c.metrics.Inc(internalmetrics.MetricSignupSuccess)
	c.emitAudit(ctx, auditEventSignupSuccess, true, nil, map[string]string{"role": string(req.Role)})
	return nil
}

func (c *Client) signupFailed(ctx context.Context, ae *AuthError) error {
	c.setLastError(ae.Message)
	c.metrics.Inc(internalmetrics.MetricSignupFailure)
	c.emitAudit(ctx, auditEventSignupFailure, false, ae, nil)
	return ae
}

// Refresh obtains a new access token through the shared refresh. When a
// refresh is already running the call waits for its outcome. A failure
// clears the session.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.gateway.Refresh(ctx)
}

// Logout tells the backend to drop the refresh credential and clears the
// session. The backend call is best effort: the session is cleared even when
// it fails, and Logout only reports local persistence errors.
func (c *Client) Logout(ctx context.Context) error {
	done := c.begin()
	defer done()

	c.logoutRemote(ctx)
	c.emitAudit(ctx, auditEventLogout, true, nil, nil)

	err := c.store.Clear(ctx)
	c.metrics.Inc(internalmetrics.MetricLogout)
	return err
}

func (c *Client) logoutRemote(ctx context.Context) {
	_, err := c.gateway.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.API.LogoutPath,
		Body:   struct{}{},
	})
	if err != nil {
		c.metrics.Inc(internalmetrics.MetricLogoutRemoteFailure)
		c.logger.Warn("backend logout failed, clearing local session", "error", err)
	}
}

// endSessionAfterRefreshFailure runs inside the refresh lock, before queued
// requests are rejected.
func (c *Client) endSessionAfterRefreshFailure(ctx context.Context) {
	c.emitAudit(ctx, auditEventRefreshFailure, false, ErrRefreshFailed, nil)
	c.logoutRemote(ctx)
	_ = c.store.Clear(ctx)
	c.metrics.Inc(internalmetrics.MetricLogout)
}

func (c *Client) recordRefresh(ctx context.Context) {
	c.emitAudit(ctx, auditEventRefreshSuccess, true, nil, nil)
}

// authFailure turns a gateway error into an AuthError. Backend rejections get
// the message from the payload; transport errors get fallback and keep the
// original error as cause.
func (c *Client) authFailure(op string, err error, fallback string) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}

	var se *gateway.StatusError
	if errors.As(err, &se) {
		return &AuthError{
			Op:         op,
			Message:    extractMessage(se.Body, fallback),
			StatusCode: se.StatusCode,
			Err:        fmt.Errorf("%w: %w", rejectionCause(op, se.StatusCode), se),
		}
	}
	return &AuthError{Op: op, Message: fallback, Err: err}
}

func rejectionCause(op string, status int) error {
	switch op {
	case opLogin:
		if status >= http.StatusInternalServerError {
			return ErrMalformedResponse
		}
		return ErrInvalidCredentials
	case opSignup:
		return ErrSignupRejected
	case opForgotPassword:
		return ErrPasswordResetRequestFailed
	default:
		return ErrPasswordResetFailed
	}
}
