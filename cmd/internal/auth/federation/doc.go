// Package federation maps external identity-provider profiles to local users.
//
// The OAuth handshake itself (authorization redirect, code exchange, profile
// fetch) is done by Provider implementations built on golang.org/x/oauth2.
// Resolver then applies the linking rule: an existing user with the same
// normalized email is returned as-is whatever its provider, otherwise a new
// federated user without a password hash is created.
package federation
