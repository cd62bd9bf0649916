// Package guard decides whether a session may visit a route.
//
// [Authorizer.RequireAuthenticated] only checks that a user is present.
// [Authorizer.Authorize] runs that check first and then compares the role
// carried by the access token with the route's allowed roles. A denied
// session is redirected to the home page of its own role; a session whose
// token yields no role is sent to the login page.
//
// # Architecture boundaries
//
// Roles are read with token.Decode, which does not verify signatures. The
// decisions made here gate navigation only. The backend remains the authority
// for every API call.
//
// # What this package must NOT do
//
//   - Mutate the session.
//   - Call the backend.
//   - Treat an unknown role as an error.
package guard
