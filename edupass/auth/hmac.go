package auth

import (
	"context"
	"fmt"

	"github.com/edupass/edupass-ledger/edupass/jwt"
)

// HMACVerifier authorizes identities from HMAC-signed bearer tokens.
// A token proves control of the account named by its sub claim; expired
// or otherwise time-invalid tokens are rejected.
type HMACVerifier struct {
	secret     []byte
	algorithms []string
}

var _ Verifier = (*HMACVerifier)(nil)

// NewHMACVerifier builds a verifier for tokens signed with secret.
// When no algorithms are given, HS256 is allowed.
func NewHMACVerifier(secret []byte, algorithms ...string) *HMACVerifier {
	if len(algorithms) == 0 {
		algorithms = []string{jwt.AlgHS256}
	}

	return &HMACVerifier{secret: secret, algorithms: algorithms}
}

// RequireIdentity verifies that ctx carries a valid token whose sub claim
// equals identity.
func (v *HMACVerifier) RequireIdentity(ctx context.Context, identity string) error {
	tokenString, ok := TokenFromContext(ctx)
	if !ok {
		return ErrMissingCredentials
	}

	token, err := jwt.Parse(tokenString, v.secret, v.algorithms)
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}

	if err := jwt.ValidateTimeClaims(token.Claims); err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}

	subject, ok := jwt.Subject(token.Claims)
	if !ok {
		return fmt.Errorf("credentials carry no subject: %w", ErrIdentityMismatch)
	}

	if subject != identity {
		return ErrIdentityMismatch
	}

	return nil
}
