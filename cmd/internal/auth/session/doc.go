// Package session implements token issuance and the session registry.
//
// Access tokens are HS256 JWTs carrying {id, email, type=access} and live for
// AccessTokenTTL (15m by default). Refresh tokens are HS256 JWTs carrying
// {id, type=refresh}, signed with a distinct secret, and live for
// RefreshTokenTTL (7d by default).
//
// The Registry holds at most one refresh token per identity, stored as an
// HMAC digest under the key "refresh_token:<id>" with a per-key TTL. Issuing a
// new pair overwrites the previous record, so only the most recently issued
// refresh token can be rotated. Logout deletes the record; outstanding access
// tokens stay valid until they expire.
package session
