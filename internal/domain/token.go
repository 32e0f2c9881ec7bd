package domain

import "time"

// TokenKind distinguishes a generally usable token from one restricted to
// completing a second factor.
type TokenKind string

const (
	TokenFullAccess TokenKind = "FULL_ACCESS"
	TokenMFAPending TokenKind = "MFA_PENDING"
)

// Token is an issued artifact. MFA_PENDING tokens never carry a refresh token.
type Token struct {
	AccessToken      string     `json:"access_token"`
	RefreshToken     string     `json:"refresh_token,omitempty"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	RefreshExpiresAt time.Time  `json:"refresh_expires_at,omitzero"`
	PrincipalID      string     `json:"principal_id"`
	TrustLevel       TrustLevel `json:"-"`
	Kind             TokenKind  `json:"token_type"`
	MFASessionID     string     `json:"mfa_session_id,omitempty"`
}

// ExpiresIn is the access token lifetime in seconds relative to now.
func (t Token) ExpiresIn(now time.Time) int64 {
	return int64(t.AccessExpiresAt.Sub(now).Seconds())
}
