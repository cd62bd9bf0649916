package goSession

import (
	"context"
	"errors"
	"testing"
)

func TestPasswordResetFlow(t *testing.T) {
	h := newClientHarness(t, nil)
	ctx := context.Background()

	if err := h.client.ForgotPassword(ctx, "ada@skillup.dev"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	resetToken := h.backend.ResetTokenFor("ada@skillup.dev")
	if resetToken == "" {
		t.Fatal("backend did not record a reset token")
	}

	if err := h.client.ResetPassword(ctx, resetToken, "brand-new-secret", "brand-new-secret"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := h.client.Login(ctx, "ada", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := h.client.Login(ctx, "ada", "brand-new-secret"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	if err := h.client.ResetPassword(ctx, resetToken, "another-secret", "another-secret"); !errors.Is(err, ErrPasswordResetFailed) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}
	if h.client.LastError() != "Token is invalid or has expired" {
		t.Fatalf("LastError = %q", h.client.LastError())
	}
}

func TestForgotPasswordErrors(t *testing.T) {
	h := newClientHarness(t, nil)
	ctx := context.Background()

	if err := h.client.ForgotPassword(ctx, "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	err := h.client.ForgotPassword(ctx, "nobody@skillup.dev")
	if !errors.Is(err, ErrPasswordResetRequestFailed) {
		t.Fatalf("expected ErrPasswordResetRequestFailed, got %v", err)
	}
	if err.Error() != "There is no user with that email address." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if got := h.client.MetricsSnapshot().Counters[MetricPasswordResetFailure]; got != 2 {
		t.Fatalf("expected 2 reset failures, got %d", got)
	}
}

func TestResetPasswordLocalChecks(t *testing.T) {
	h := newClientHarness(t, nil)
	ctx := context.Background()

	err := h.client.ResetPassword(ctx, "  ", "secret-one", "secret-one")
	if !errors.Is(err, ErrResetTokenMissing) {
		t.Fatalf("expected ErrResetTokenMissing, got %v", err)
	}
	if err.Error() != DefaultConfig().Messages.ResetTokenMissing {
		t.Fatalf("unexpected message %q", err.Error())
	}

	err = h.client.ResetPassword(ctx, "some-token", "secret-one", "secret-two")
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if h.client.LastError() != DefaultConfig().Messages.PasswordMismatch {
		t.Fatalf("LastError = %q", h.client.LastError())
	}

	h.client.ClearError()
	if h.client.LastError() != "" {
		t.Fatal("ClearError did not reset LastError")
	}
}
