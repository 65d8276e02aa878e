// Package identity implements the credential store of the auth service.
//
// It owns the User record (email, display name, optional password hash and
// federation linkage), the Store boundary with Postgres and in-memory
// implementations, and the password hashing wrapper used at registration and
// login.
//
// Invariant enforced on every write: a user registered with a password has
// Provider == ProviderLocal and a non-nil PasswordHash; a federated user never
// has one.
package identity
