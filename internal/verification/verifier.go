// Package verification decides whether a presented credential matches what is
// stored for a principal and what trust a match is worth.
package verification

import (
	"context"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// Failure reasons surfaced in domain.AuthResult.
const (
	ReasonUnsupported     = "Unsupported credential type"
	ReasonInvalidPassword = "Invalid password"
	ReasonInvalidSocial   = "Invalid social identity"
	ReasonInvalidPasskey  = "Invalid passkey assertion"
	ReasonInvalidCode     = "Invalid code"
	ReasonUnavailable     = "Credential type not available"
)

// PasswordVerifier compares a plaintext secret with a stored one-way hash.
type PasswordVerifier interface {
	Matches(plain, hash string) (bool, error)
}

// PasskeyVerifier checks a WebAuthn assertion against the stored public key.
type PasskeyVerifier interface {
	Verify(ctx context.Context, stored, presented domain.PasskeyCredential) (bool, error)
}

// SocialIdentityVerifier validates a provider assertion obtained through an
// OAuth/OIDC exchange that happened outside the engine.
type SocialIdentityVerifier interface {
	IsValid(ctx context.Context, cred domain.SocialCredential) (bool, error)
}

// TOTPValidator reports whether code is currently valid for secret.
type TOTPValidator func(code, secret string) bool
