// Package account orchestrates the credential and session lifecycle:
// registration, password login, federated login, refresh, logout and the
// identity summary behind an access token.
//
// Every failure is an *Error classified by Kind. Store and registry calls run
// under a per-call deadline; deadline and connectivity failures surface as
// KindTransient, never as KindAuthentication.
package account
