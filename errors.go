package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/internal/gateway"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrInvalidCredentials is the cause of a login the backend rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoAccessToken reports a successful auth response without an access token.
	ErrNoAccessToken = gateway.ErrNoAccessToken
	// ErrMalformedResponse reports a 2xx auth response that could not be used.
	ErrMalformedResponse = errors.New("malformed auth response")
	// ErrRefreshFailed wraps every refresh failure. The session is cleared.
	ErrRefreshFailed = gateway.ErrRefreshFailed
	// ErrSignupInvalid reports a signup request rejected by local validation.
	ErrSignupInvalid = errors.New("invalid signup request")
	// ErrSignupRejected is the cause of a signup the backend rejected.
	ErrSignupRejected = errors.New("signup rejected")
	// ErrInvalidEmail reports a malformed email for a password reset request.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrPasswordResetRequestFailed is the cause of a rejected forgot-password call.
	ErrPasswordResetRequestFailed = errors.New("password reset request failed")
	// ErrPasswordMismatch reports differing password and confirmation.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrResetTokenMissing reports a reset attempt without a reset token.
	ErrResetTokenMissing = errors.New("password reset token missing")
	// ErrPasswordResetFailed is the cause of a rejected password reset.
	ErrPasswordResetFailed = errors.New("password reset failed")
	// ErrStorageUnavailable reports a session backend failure. In-memory state
	// is still updated.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")
)

// AuthError is what every auth operation returns on failure. Error returns the
// human-readable Message; Unwrap exposes the cause for errors.Is.
type AuthError struct {
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
