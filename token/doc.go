// Package token reads the claims of an access token without verifying it.
//
// # Trust boundary
//
// [Decode] is signature-blind. The claims it returns are a UI convenience for
// choosing which screens to offer; they are never an authorization decision. The
// backend verifies every token it receives.
//
// # What this package must NOT do
//
//   - Verify signatures or hold key material.
//   - Cache decoded claims (the token may be replaced at any time).
//   - Panic or return errors for malformed input.
package token
