package auth

import (
	"context"
	"errors"
)

// ErrMissingCredentials indicates the context carries no token to verify.
var ErrMissingCredentials = errors.New("no credentials in request context")

// ErrIdentityMismatch indicates the presented credentials belong to a
// different identity than the one required.
var ErrIdentityMismatch = errors.New("credentials do not match required identity")

// Verifier authorizes an operation on behalf of an account identity.
//
//go:generate mockgen --destination=auth_mock.go --package=auth . Verifier
type Verifier interface {
	// RequireIdentity returns nil when the credentials carried by ctx
	// prove control of identity. Any non-nil error means the operation
	// must be rejected as unauthorized.
	RequireIdentity(ctx context.Context, identity string) error
}

// AllowAll is a Verifier that accepts every identity. Use it only in
// development and test wiring.
type AllowAll struct{}

var _ Verifier = AllowAll{}

// RequireIdentity always succeeds.
func (AllowAll) RequireIdentity(context.Context, string) error {
	return nil
}

// DenyAll is a Verifier that rejects every identity.
type DenyAll struct{}

var _ Verifier = DenyAll{}

// RequireIdentity always fails.
func (DenyAll) RequireIdentity(context.Context, string) error {
	return ErrIdentityMismatch
}

// ---- Credential plumbing ----

type tokenContextKey struct{}

// ContextWithToken returns a context carrying the raw bearer token
// extracted at the transport layer.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token attached to ctx, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || token == "" {
		return "", false
	}

	return token, true
}
