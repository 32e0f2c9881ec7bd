// Package oidc checks social identities by verifying the provider's ID token.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// ProviderConfig names one trusted identity provider.
type ProviderConfig struct {
	Name     string
	Issuer   string
	ClientID string
}

// Verifier implements the social identity check for a fixed set of providers.
type Verifier struct {
	verifiers map[string]*gooidc.IDTokenVerifier
}

// NewVerifier discovers every provider's signing keys. It needs network
// access to each issuer.
func NewVerifier(ctx context.Context, providers []ProviderConfig) (*Verifier, error) {
	v := &Verifier{verifiers: make(map[string]*gooidc.IDTokenVerifier, len(providers))}
	for _, p := range providers {
		if p.Name == "" || p.Issuer == "" || p.ClientID == "" {
			return nil, errors.New("provider name, issuer and client ID are required")
		}
		op, err := gooidc.NewProvider(ctx, p.Issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc new provider %s: %w", p.Name, err)
		}
		v.verifiers[strings.ToLower(p.Name)] = op.Verifier(&gooidc.Config{ClientID: p.ClientID})
	}
	return v, nil
}

// NewStaticVerifier builds a verifier for a single provider from known keys.
func NewStaticVerifier(p ProviderConfig, keys gooidc.KeySet, config *gooidc.Config) *Verifier {
	if config == nil {
		config = &gooidc.Config{}
	}
	config.ClientID = p.ClientID
	return &Verifier{verifiers: map[string]*gooidc.IDTokenVerifier{
		strings.ToLower(p.Name): gooidc.NewVerifier(p.Issuer, keys, config),
	}}
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
}

// IsValid verifies the raw ID token and that it names the presented subject.
// Unknown providers and missing tokens are invalid, not errors.
func (v *Verifier) IsValid(ctx context.Context, cred domain.SocialCredential) (bool, error) {
	verifier, ok := v.verifiers[strings.ToLower(cred.Provider)]
	if !ok || cred.IDToken == "" {
		return false, nil
	}

	idTok, err := verifier.Verify(ctx, cred.IDToken)
	if err != nil {
		return false, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Subject != cred.Subject {
		return false, nil
	}

	if cred.Email != "" {
		var claims idTokenClaims
		if err := idTok.Claims(&claims); err != nil {
			return false, fmt.Errorf("parse id_token claims: %w", err)
		}
		if !strings.EqualFold(claims.Email, cred.Email) {
			return false, nil
		}
		if claims.EmailVerified != nil && !*claims.EmailVerified {
			return false, nil
		}
	}

	return true, nil
}

// Providers lists the configured provider names.
func (v *Verifier) Providers() []string {
	names := make([]string, 0, len(v.verifiers))
	for name := range v.verifiers {
		names = append(names, name)
	}
	return names
}
