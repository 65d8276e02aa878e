// Package token provides refresh-token digest primitives.
//
// Refresh tokens are never kept server-side in clear text: the session registry
// stores HMAC-SHA256(token, key) as a 64-char hex string and compares digests in
// constant time.
package token
