package goSession

import (
	"io"

	"github.com/MrEthical07/goSession/guard"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/gateway"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/session"
)

// Session values are owned by the session package and re-exported here so
// callers only import goSession.
type (
	Profile      = session.Profile
	Name         = session.Name
	Role         = session.Role
	ProfilePatch = session.ProfilePatch
	Session      = session.Session
)

const (
	RoleLearner    = session.RoleLearner
	RoleInstructor = session.RoleInstructor
	RoleAdmin      = session.RoleAdmin
)

// Request describes an API call sent through the Client.
type Request = gateway.Request

// Response is a fully read API response.
type Response = gateway.Response

// StatusError reports a non-2xx API response.
type StatusError = gateway.StatusError

// Decision is the outcome of a route check.
type Decision = guard.Decision

// SignUpRequest carries the registration form. Only presence, email shape
// and role are checked locally; length and strength rules belong to the
// backend. Role must be learner or instructor; admins are not
// self-registered.
type SignUpRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Avatar    string `json:"avatar,omitempty"`
	Role      Role   `json:"role" validate:"required,oneof=learner instructor"`
}

// AuditEvent is a structured audit record emitted by the Client.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes events to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess         = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure         = MetricID(internalmetrics.MetricLoginFailure)
	MetricSignupSuccess        = MetricID(internalmetrics.MetricSignupSuccess)
	MetricSignupFailure        = MetricID(internalmetrics.MetricSignupFailure)
	MetricLogout               = MetricID(internalmetrics.MetricLogout)
	MetricLogoutRemoteFailure  = MetricID(internalmetrics.MetricLogoutRemoteFailure)
	MetricRefreshSuccess       = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure       = MetricID(internalmetrics.MetricRefreshFailure)
	MetricRefreshQueued        = MetricID(internalmetrics.MetricRefreshQueued)
	MetricRequestRetried       = MetricID(internalmetrics.MetricRequestRetried)
	MetricStaleTokenReplay     = MetricID(internalmetrics.MetricStaleTokenReplay)
	MetricRequestUnauthorized  = MetricID(internalmetrics.MetricRequestUnauthorized)
	MetricPasswordResetRequest = MetricID(internalmetrics.MetricPasswordResetRequest)
	MetricPasswordResetConfirm = MetricID(internalmetrics.MetricPasswordResetConfirm)
	MetricPasswordResetFailure = MetricID(internalmetrics.MetricPasswordResetFailure)
	MetricRefreshLatency       = MetricID(internalmetrics.MetricRefreshLatency)
	MetricIDCount              = MetricID(internalmetrics.MetricIDCount)
)

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot
