package goSession

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
)

// ForgotPassword asks the backend to email a reset link to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	done := c.begin()
	defer done()

	if err := c.validate.Var(email, "required,email"); err != nil {
		return c.resetFailed(ctx, auditEventPasswordResetRequest, &AuthError{
			Op:      opForgotPassword,
			Message: "email must be a valid email address",
			Err:     fmt.Errorf("%w: %w", ErrInvalidEmail, err),
		})
	}

	_, err := c.gateway.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   c.config.API.ForgotPasswordPath,
		Body:   map[string]string{"email": email},
	})
	if err != nil {
		return c.resetFailed(ctx, auditEventPasswordResetRequest,
			c.authFailure(opForgotPassword, err, c.config.Messages.ForgotPasswordFailed))
	}

	c.metrics.Inc(internalmetrics.MetricPasswordResetRequest)
	c.emitAudit(ctx, auditEventPasswordResetRequest, true, nil, nil)
	return nil
}

// ResetPassword sets a new password using the token from a reset link. The
// token and the confirmation are checked locally before any request.
func (c *Client) ResetPassword(ctx context.Context, resetToken, password, passwordConfirm string) error {
	done := c.begin()
	defer done()

	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" {
		return c.resetFailed(ctx, auditEventPasswordResetConfirm, &AuthError{
			Op:      opResetPassword,
			Message: c.config.Messages.ResetTokenMissing,
			Err:     ErrResetTokenMissing,
		})
	}
	if password != passwordConfirm {
		return c.resetFailed(ctx, auditEventPasswordResetConfirm, &AuthError{
			Op:      opResetPassword,
			Message: c.config.Messages.PasswordMismatch,
			Err:     ErrPasswordMismatch,
		})
	}

	_, err := c.gateway.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   strings.TrimRight(c.config.API.ResetPasswordPath, "/") + "/" + url.PathEscape(resetToken),
		Body: map[string]string{
			"password":        password,
			"passwordConfirm": passwordConfirm,
		},
	})
	if err != nil {
		return c.resetFailed(ctx, auditEventPasswordResetConfirm,
			c.authFailure(opResetPassword, err, c.config.Messages.ResetPasswordFailed))
	}

	c.metrics.Inc(internalmetrics.MetricPasswordResetConfirm)
	c.emitAudit(ctx, auditEventPasswordResetConfirm, true, nil, nil)
	return nil
}

func (c *Client) resetFailed(ctx context.Context, eventType string, ae *AuthError) error {
	c.setLastError(ae.Message)
	c.metrics.Inc(internalmetrics.MetricPasswordResetFailure)
	c.emitAudit(ctx, eventType, false, ae, nil)
	return ae
}
