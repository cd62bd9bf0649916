package token

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of an access token the client cares about.
//
// The backend has shipped both a scalar "role" and a "roles" collection; each
// field accepts either a string or an array. A field of an unexpected type
// is left empty rather than failing the decode.
type Claims struct {
	Subject   string
	ExpiresAt *jwt.NumericDate
	Role      jwt.ClaimStrings
	Roles     jwt.ClaimStrings
}

var parser = jwt.NewParser()

// Decode reads the payload segment of raw. Only the payload is looked at:
// the header and signature are neither parsed nor verified. It reports false
// for empty tokens, tokens without three segments, and payloads that are not
// a base64url-encoded JSON object.
func Decode(raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, false
	}
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, false
	}

	claims := &Claims{}
	lenient(fields["sub"], &claims.Subject)
	lenient(fields["role"], &claims.Role)
	lenient(fields["roles"], &claims.Roles)
	var exp jwt.NumericDate
	if lenient(fields["exp"], &exp) {
		claims.ExpiresAt = &exp
	}
	return claims, true
}

// lenient unmarshals raw into dst and reports whether it succeeded. A missing
// field, a JSON null or a type mismatch leaves dst untouched.
func lenient(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// PrimaryRole returns the first role carried by the claims: the first entry of
// "roles" when present, else the first entry of "role". It returns "" when the
// token carries no role.
func (c *Claims) PrimaryRole() string {
	if c == nil {
		return ""
	}
	for _, r := range c.Roles {
		if r != "" {
			return r
		}
	}
	for _, r := range c.Role {
		if r != "" {
			return r
		}
	}
	return ""
}

// Expired reports whether the token carries an expiry at or before now.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ExpiresWithin reports whether the token expires within d of now.
func (c *Claims) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return !now.Add(d).Before(c.ExpiresAt.Time)
}

// RoleOf decodes raw and returns its primary role, or "" when the token is
// absent, malformed, or carries no role.
func RoleOf(raw string) string {
	claims, ok := Decode(raw)
	if !ok {
		return ""
	}
	return claims.PrimaryRole()
}
