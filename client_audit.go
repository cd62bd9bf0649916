package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/internal/gateway"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventSignupSuccess        = "signup_success"
	auditEventSignupFailure        = "signup_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshFailure       = "refresh_failure"
	auditEventLogout               = "logout"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
)

// AuditErrorCode is the stable error classification carried by audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrMalformedResponse  AuditErrorCode = "malformed_response"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrRefreshFailed      AuditErrorCode = "refresh_failed"
	auditErrTransport          AuditErrorCode = "transport"
)

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	var se *gateway.StatusError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSignupInvalid), errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrResetTokenMissing):
		return auditErrInvalidInput
	case errors.Is(err, ErrNoAccessToken), errors.Is(err, ErrMalformedResponse):
		return auditErrMalformedResponse
	case errors.Is(err, ErrRefreshFailed):
		return auditErrRefreshFailed
	case errors.Is(err, ErrSignupRejected), errors.Is(err, ErrPasswordResetFailed),
		errors.Is(err, ErrPasswordResetRequestFailed), errors.As(err, &se):
		return auditErrRejected
	default:
		return auditErrTransport
	}
}

// emitAudit never records passwords, tokens or backend payloads.
func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, err error, metadata map[string]string) {
	if c == nil || c.audit == nil {
		return
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if u := c.store.Get().User; u != nil {
		event.Username = u.Username
	}
	event.Role = string(c.Role())
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}
