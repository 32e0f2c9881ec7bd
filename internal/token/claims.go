package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// Use separates access tokens from refresh tokens of the same kind.
type Use string

const (
	UseAccess  Use = "access"
	UseRefresh Use = "refresh"
)

// MFARole is the role claim that restricts a pending token to MFA completion.
const MFARole = "mfa_completion"

// wireClaims is the signed payload.
type wireClaims struct {
	Identifier     string              `json:"identifier"`
	AuthLevel      string              `json:"auth_level"`
	AuthLevelValue int                 `json:"auth_level_value"`
	TokenType      domain.TokenKind    `json:"token_type"`
	TokenUse       Use                 `json:"token_use"`
	MFASessionID   string              `json:"mfa_session_id,omitempty"`
	MFARole        string              `json:"mfa_role,omitempty"`
	MFARequired    []domain.FactorType `json:"mfa_required,omitempty"`
	MFACompleted   []domain.FactorType `json:"mfa_completed,omitempty"`
	jwt.RegisteredClaims
}

// Claims is the verified view of a token. Values only come out of
// Service.Verify, so reading a trust level or kind always implies the
// signature and expiry were checked.
type Claims struct {
	subject      string
	identifier   string
	tokenID      string
	level        domain.TrustLevel
	kind         domain.TokenKind
	use          Use
	mfaSessionID string
	required     domain.FactorSet
	completed    domain.FactorSet
	issuedAt     time.Time
	expiresAt    time.Time
}

func (c *Claims) Subject() string               { return c.subject }
func (c *Claims) Identifier() string            { return c.identifier }
func (c *Claims) TokenID() string               { return c.tokenID }
func (c *Claims) TrustLevel() domain.TrustLevel { return c.level }
func (c *Claims) Kind() domain.TokenKind        { return c.kind }
func (c *Claims) Use() Use                      { return c.use }
func (c *Claims) MFASessionID() string          { return c.mfaSessionID }
func (c *Claims) IssuedAt() time.Time           { return c.issuedAt }
func (c *Claims) ExpiresAt() time.Time          { return c.expiresAt }

// RequiredFactors is the step-up set an MFA_PENDING token was issued for.
func (c *Claims) RequiredFactors() domain.FactorSet { return c.required.Union(nil) }

// CompletedFactors are the factors verified before the token was issued.
func (c *Claims) CompletedFactors() domain.FactorSet { return c.completed.Union(nil) }
