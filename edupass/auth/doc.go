// Package auth decides whether a request may act on behalf of a ledger
// account.
//
// The Verifier interface is deliberately narrow: given a context carrying
// request credentials and an account identity, RequireIdentity reports
// whether the credentials prove control of that identity. HMACVerifier is
// the production implementation, backed by HMAC-signed bearer tokens whose
// sub claim names the account. AllowAll and DenyAll cover development and
// lockdown wiring.
//
// Credentials travel on the context: transport middleware extracts the
// bearer token and attaches it with ContextWithToken, keeping the engine
// free of HTTP concerns.
package auth
