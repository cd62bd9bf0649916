// Package session provides the persisted client-side session record: the signed-in
// user profile and the current access token.
//
// # Persistence
//
// Every mutation of a [Store] writes the {user, accessToken} pair (and nothing else)
// to a [Storage] backend under a fixed namespace. The record is a schema-versioned JSON
// document; [Store.Load] rehydrates it once at startup.
//
// # Architecture boundaries
//
// This package owns the [Session] model, the [Store] state container and the storage
// backends. It does NOT decode tokens, talk to the auth backend, or make routing
// decisions. Those responsibilities belong to the token, guard and root packages.
//
// # What this package must NOT do
//
//   - Import goSession, token, or guard (no upward imports).
//   - Persist loading or error flags.
//   - Hold a session with a user but no access token.
package session
