package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

var (
	// ErrInvalidToken covers every integrity failure: bad signature, malformed
	// payload, unknown key, expiry. Callers must re-authenticate.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken also matches ErrInvalidToken.
	ErrExpiredToken = fmt.Errorf("%w: token expired", ErrInvalidToken)
	// ErrWrongKind is returned when a valid token is presented where its kind or use is not accepted.
	ErrWrongKind = fmt.Errorf("%w: token kind not accepted", ErrInvalidToken)
)

// Config holds the token lifetimes. It is immutable after construction.
type Config struct {
	Issuer        string
	BaseTTL       time.Duration // LOW trust access tokens; MEDIUM gets 2x, HIGH 4x
	RefreshTTL    time.Duration
	MFAPendingTTL time.Duration
}

// DefaultConfig mirrors the lifetimes the service ships with.
func DefaultConfig() Config {
	return Config{
		Issuer:        "sentinel-trust",
		BaseTTL:       15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		MFAPendingTTL: 5 * time.Minute,
	}
}

// Service mints and validates signed, time-boxed tokens.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	keys *Keyring
	cfg  Config
	now  func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service signing with the keyring's current key.
func NewService(keys *Keyring, cfg Config, opts ...Option) *Service {
	s := &Service{keys: keys, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTLFor returns the access lifetime for a full-access token at level.
func (s *Service) TTLFor(level domain.TrustLevel) time.Duration {
	switch level {
	case domain.TrustMedium:
		return 2 * s.cfg.BaseTTL
	case domain.TrustHigh:
		return 4 * s.cfg.BaseTTL
	default:
		return s.cfg.BaseTTL
	}
}

// IssueFullAccess creates an access/refresh pair asserting level.
func (s *Service) IssueFullAccess(principalID, identifier string, level domain.TrustLevel) (*domain.Token, error) {
	if principalID == "" {
		return nil, errors.New("principal id is required")
	}
	if level < domain.TrustLow || level > domain.TrustHigh {
		return nil, fmt.Errorf("cannot issue a token for trust level %s", level)
	}

	now := s.now()
	accessExp := now.Add(s.TTLFor(level))
	refreshExp := now.Add(s.cfg.RefreshTTL)

	access, err := s.sign(s.claims(principalID, identifier, level, domain.TokenFullAccess, UseAccess, now, accessExp))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(s.claims(principalID, identifier, level, domain.TokenFullAccess, UseRefresh, now, refreshExp))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &domain.Token{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		PrincipalID:      principalID,
		TrustLevel:       level,
		Kind:             domain.TokenFullAccess,
	}, nil
}

// IssueMFAPending creates a short-lived token usable only to complete MFA.
// The outstanding and already completed factors travel in the token so
// completion can be checked against them. It never carries a refresh token.
func (s *Service) IssueMFAPending(principalID, identifier string, current domain.TrustLevel, mfa domain.MFARequirement) (*domain.Token, error) {
	if principalID == "" {
		return nil, errors.New("principal id is required")
	}
	if mfa.SessionID == "" {
		return nil, errors.New("mfa session id is required")
	}
	if !mfa.Required || mfa.Remaining().Len() == 0 {
		return nil, errors.New("mfa requirement has no outstanding factors")
	}
	if current < domain.TrustLow || current > domain.TrustHigh {
		return nil, fmt.Errorf("cannot issue a token for trust level %s", current)
	}

	now := s.now()
	exp := now.Add(s.cfg.MFAPendingTTL)

	c := s.claims(principalID, identifier, current, domain.TokenMFAPending, UseAccess, now, exp)
	c.MFASessionID = mfa.SessionID
	c.MFARole = MFARole
	c.MFARequired = mfa.RequiredFactors.Sorted()
	c.MFACompleted = mfa.CompletedFactors.Sorted()

	access, err := s.sign(c)
	if err != nil {
		return nil, fmt.Errorf("sign mfa token: %w", err)
	}

	return &domain.Token{
		AccessToken:     access,
		AccessExpiresAt: exp,
		PrincipalID:     principalID,
		TrustLevel:      current,
		Kind:            domain.TokenMFAPending,
		MFASessionID:    mfa.SessionID,
	}, nil
}

// Verify checks signature, then expiry, then claim consistency.
// It never returns partially trusted claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &wireClaims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	wc, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return toClaims(wc)
}

// VerifyAccess verifies tokenString and requires an access token of kind.
func (s *Service) VerifyAccess(tokenString string, kind domain.TokenKind) (*Claims, error) {
	c, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if c.Use() != UseAccess || c.Kind() != kind {
		return nil, ErrWrongKind
	}
	return c, nil
}

// VerifyRefresh verifies tokenString and requires a full-access refresh token.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	c, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if c.Use() != UseRefresh || c.Kind() != domain.TokenFullAccess {
		return nil, ErrWrongKind
	}
	return c, nil
}

// ExtractTrustLevel verifies the token before reading its trust level.
func (s *Service) ExtractTrustLevel(tokenString string) (domain.TrustLevel, error) {
	c, err := s.Verify(tokenString)
	if err != nil {
		return domain.TrustNone, err
	}
	return c.TrustLevel(), nil
}

// ExtractTokenKind verifies the token before reading its kind.
func (s *Service) ExtractTokenKind(tokenString string) (domain.TokenKind, error) {
	c, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return c.Kind(), nil
}

func (s *Service) claims(principalID, identifier string, level domain.TrustLevel, kind domain.TokenKind, use Use, now, exp time.Time) *wireClaims {
	return &wireClaims{
		Identifier:     identifier,
		AuthLevel:      level.String(),
		AuthLevelValue: level.Rank(),
		TokenType:      kind,
		TokenUse:       use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
}

func (s *Service) sign(c *wireClaims) (string, error) {
	kid, key := s.keys.signingKey()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	t.Header["kid"] = kid
	return t.SignedString(key)
}

func (s *Service) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	kid, _ := t.Header["kid"].(string)
	key, ok := s.keys.lookup(kid)
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

// toClaims rejects any payload whose fields disagree with each other.
func toClaims(wc *wireClaims) (*Claims, error) {
	if wc.Subject == "" || wc.ID == "" || wc.IssuedAt == nil || wc.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing registered claims", ErrInvalidToken)
	}

	level, err := domain.ParseTrustLevel(wc.AuthLevel)
	if err != nil || level.Rank() != wc.AuthLevelValue {
		return nil, fmt.Errorf("%w: inconsistent auth level", ErrInvalidToken)
	}

	if wc.TokenUse != UseAccess && wc.TokenUse != UseRefresh {
		return nil, fmt.Errorf("%w: unknown token use", ErrInvalidToken)
	}

	switch wc.TokenType {
	case domain.TokenFullAccess:
		if wc.MFASessionID != "" || wc.MFARole != "" || len(wc.MFARequired) > 0 || len(wc.MFACompleted) > 0 {
			return nil, fmt.Errorf("%w: mfa claims on full access token", ErrInvalidToken)
		}
	case domain.TokenMFAPending:
		if wc.TokenUse != UseAccess || wc.MFASessionID == "" || wc.MFARole != MFARole || len(wc.MFARequired) == 0 {
			return nil, fmt.Errorf("%w: malformed mfa token", ErrInvalidToken)
		}
	default:
		return nil, fmt.Errorf("%w: unknown token type", ErrInvalidToken)
	}

	required, ok := factorSet(wc.MFARequired)
	if !ok {
		return nil, fmt.Errorf("%w: unknown required factor", ErrInvalidToken)
	}
	completed, ok := factorSet(wc.MFACompleted)
	if !ok {
		return nil, fmt.Errorf("%w: unknown completed factor", ErrInvalidToken)
	}

	return &Claims{
		subject:      wc.Subject,
		identifier:   wc.Identifier,
		tokenID:      wc.ID,
		level:        level,
		kind:         wc.TokenType,
		use:          wc.TokenUse,
		mfaSessionID: wc.MFASessionID,
		required:     required,
		completed:    completed,
		issuedAt:     wc.IssuedAt.Time,
		expiresAt:    wc.ExpiresAt.Time,
	}, nil
}

func factorSet(tags []domain.FactorType) (domain.FactorSet, bool) {
	for _, f := range tags {
		if !f.Valid() {
			return nil, false
		}
	}
	return domain.NewFactorSet(tags...), true
}
