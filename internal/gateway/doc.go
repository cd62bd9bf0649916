// Package gateway sends API requests with the session's bearer token and turns
// 401 responses into a single shared token refresh.
//
// # Refresh protocol
//
// The first request that receives 401 while no refresh is running becomes the
// leader: it marks the gateway as refreshing and calls the refresh endpoint.
// Every other 401 observed while the refresh runs parks a waiter in a FIFO
// queue. When the refresh settles the queue is drained in order and each
// waiter receives the same outcome exactly once. A request is retried at most
// once; a second 401 is returned to the caller unchanged.
//
// On refresh failure the failure hook (logout) runs before any waiter is
// released, so a rejected caller always observes a cleared session.
//
// # Architecture boundaries
//
// This package owns interception, queuing and retry. Persisting the new token
// is delegated to a TokenStore. It does not know about login, signup or
// profile data.
//
// # What this package must NOT do
//
//   - Route the refresh call or the failure hook back through interception.
//   - Start a second refresh while one is outstanding.
//   - Log token values.
package gateway
