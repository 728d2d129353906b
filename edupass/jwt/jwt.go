// Package jwt provides minimal HMAC-based JWT signing and verification
// for ledger operation tokens. It supports HS256, HS384, and HS512 using
// shared secrets.
package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"
)

const (
	// AlgHS256 identifies the HMAC-SHA256 signing algorithm.
	AlgHS256 = "HS256"
	// AlgHS384 identifies the HMAC-SHA384 signing algorithm.
	AlgHS384 = "HS384"
	// AlgHS512 identifies the HMAC-SHA512 signing algorithm.
	AlgHS512 = "HS512"

	// tokenPartCount is the number of dot-separated parts in a compact JWT.
	tokenPartCount = 3

	// maxTokenLength bounds accepted token strings. 8KB is generous for
	// any legitimate ledger token.
	maxTokenLength = 8192
)

// MapClaims is a convenience alias for an unstructured JWT payload.
type MapClaims = map[string]any

// Token represents a parsed JWT with its header, claims, and validation
// state. Valid is true only when the signature has been verified.
type Token struct {
	Claims MapClaims
	Valid  bool
	Header map[string]any
}

var (
	// ErrInvalidToken indicates the token string is malformed or cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedAlgorithm indicates the signing algorithm is not supported or not allowed.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrSignatureInvalid indicates the token signature does not match the expected value.
	ErrSignatureInvalid = errors.New("signature verification failed")
	// ErrTokenExpired indicates the token's exp claim is in the past.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	// ErrTokenIssuedInFuture indicates the token's iat claim is in the future.
	ErrTokenIssuedInFuture = errors.New("token issued in the future")
)

// Parse validates and decodes a compact JWT. It verifies that the header
// algorithm is in the allowedAlgorithms whitelist and checks the HMAC
// signature against secret using constant-time comparison.
//
// Token.Valid indicates only that the cryptographic signature verified.
// Time-based claims (exp, nbf, iat) are NOT checked here; callers must
// validate them separately with ValidateTimeClaims.
func Parse(tokenString string, secret []byte, allowedAlgorithms []string) (*Token, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token string: %w", ErrInvalidToken)
	}

	if len(tokenString) > maxTokenLength {
		return nil, fmt.Errorf("token exceeds maximum length of %d bytes: %w", maxTokenLength, ErrInvalidToken)
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != tokenPartCount {
		return nil, fmt.Errorf("token must have %d parts: %w", tokenPartCount, ErrInvalidToken)
	}

	header, err := decodeJSONSegment(parts[0], "header")
	if err != nil {
		return nil, err
	}

	alg, ok := header["alg"].(string)
	if !ok || alg == "" {
		return nil, fmt.Errorf("missing alg in header: %w", ErrInvalidToken)
	}

	if !isAllowed(alg, allowedAlgorithms) {
		return nil, fmt.Errorf("algorithm %q not allowed: %w", alg, ErrUnsupportedAlgorithm)
	}

	if err := verifySignature(parts, alg, secret); err != nil {
		return nil, err
	}

	claims, err := decodeJSONSegment(parts[1], "payload")
	if err != nil {
		return nil, err
	}

	return &Token{
		Claims: claims,
		Valid:  true,
		Header: header,
	}, nil
}

// Sign produces a compact JWT serialization from the given claims using
// the specified HMAC algorithm and secret.
func Sign(claims MapClaims, algorithm string, secret []byte) (string, error) {
	hashFunc, err := hashForAlgorithm(algorithm)
	if err != nil {
		return "", err
	}

	headerJSON, err := json.Marshal(map[string]string{"alg": algorithm, "typ": "JWT"})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(claimsJSON)

	sig, err := computeHMAC([]byte(signingInput), secret, hashFunc)
	if err != nil {
		return "", fmt.Errorf("compute signature: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Subject extracts the sub claim as a string. It returns false when the
// claim is absent, empty, or not a string.
func Subject(claims MapClaims) (string, bool) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}

	return sub, true
}

// ValidateTimeClaimsAt checks the standard time-based claims against the
// provided time. Each claim is optional: absent claims skip their check.
// Returns ErrTokenExpired, ErrTokenNotYetValid, or ErrTokenIssuedInFuture
// on violation.
func ValidateTimeClaimsAt(claims MapClaims, now time.Time) error {
	if exp, ok := extractTime(claims, "exp"); ok {
		if now.After(exp) {
			return fmt.Errorf("token expired at %s: %w", exp.Format(time.RFC3339), ErrTokenExpired)
		}
	}

	if nbf, ok := extractTime(claims, "nbf"); ok {
		if now.Before(nbf) {
			return fmt.Errorf("token not valid until %s: %w", nbf.Format(time.RFC3339), ErrTokenNotYetValid)
		}
	}

	if iat, ok := extractTime(claims, "iat"); ok {
		if now.Before(iat) {
			return fmt.Errorf("token issued at %s which is in the future: %w", iat.Format(time.RFC3339), ErrTokenIssuedInFuture)
		}
	}

	return nil
}

// ValidateTimeClaims checks the standard time-based claims (exp, nbf, iat)
// against the current UTC time.
func ValidateTimeClaims(claims MapClaims) error {
	return ValidateTimeClaimsAt(claims, time.Now().UTC())
}

// decodeJSONSegment base64url-decodes one token segment and unmarshals it
// into a generic map.
func decodeJSONSegment(segment, name string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, ErrInvalidToken)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, ErrInvalidToken)
	}

	return decoded, nil
}

// verifySignature recomputes the HMAC over header.payload and compares it
// against the token's signature in constant time.
func verifySignature(parts []string, alg string, secret []byte) error {
	hashFunc, err := hashForAlgorithm(alg)
	if err != nil {
		return err
	}

	signingInput := parts[0] + "." + parts[1]

	expectedSig, err := computeHMAC([]byte(signingInput), secret, hashFunc)
	if err != nil {
		return fmt.Errorf("compute signature: %w", ErrInvalidToken)
	}

	actualSig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("decode signature: %w", ErrInvalidToken)
	}

	if !hmac.Equal(expectedSig, actualSig) {
		return ErrSignatureInvalid
	}

	return nil
}

func isAllowed(alg string, allowed []string) bool {
	for _, a := range allowed {
		if a == alg {
			return true
		}
	}

	return false
}

func hashForAlgorithm(alg string) (func() hash.Hash, error) {
	switch alg {
	case AlgHS256:
		return sha256.New, nil
	case AlgHS384:
		return sha512.New384, nil
	case AlgHS512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("algorithm %q: %w", alg, ErrUnsupportedAlgorithm)
	}
}

func computeHMAC(data, secret []byte, hashFunc func() hash.Hash) ([]byte, error) {
	mac := hmac.New(hashFunc, secret)

	if _, err := mac.Write(data); err != nil {
		return nil, fmt.Errorf("hmac write: %w", err)
	}

	return mac.Sum(nil), nil
}

// extractTime retrieves a unix-seconds time value from claims by key.
// float64 (encoding/json default) and json.Number are supported.
func extractTime(claims MapClaims, key string) (time.Time, bool) {
	raw, exists := claims[key]
	if !exists {
		return time.Time{}, false
	}

	switch v := raw.(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}

		return time.Unix(int64(f), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}
