// Package goSession is the client-side session engine of the SkillUp platform.
// It logs users in and out, keeps the access token fresh with a single shared
// refresh, persists the session record and decides which dashboards a session
// may open.
//
// A [Client] is created through [Builder.Build] and is safe to call from
// multiple goroutines.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config],
// [AuthError] and value types (Profile, Session, Request, MetricsSnapshot).
// Request interception and refresh queuing live in internal/gateway, the
// session record in session, token decoding in token and route decisions in
// guard.
//
// # What this package must NOT do
//
//   - Verify token signatures. The backend is the authority.
//   - Route auth endpoints (login, signup, refresh, logout, password reset)
//     through 401 interception.
//   - Return raw backend error payloads. Failures surface as *AuthError with a
//     human-readable message.
package goSession
