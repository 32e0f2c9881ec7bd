// Package passkey verifies WebAuthn assertions with go-webauthn.
package passkey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// ErrUnknownChallenge is returned when the assertion answers no pending challenge.
var ErrUnknownChallenge = errors.New("unknown or expired challenge")

// SessionStore keeps login sessions between begin and finish. Take must
// delete the session it returns.
type SessionStore interface {
	Save(ctx context.Context, challenge string, session []byte, ttl time.Duration) error
	Take(ctx context.Context, challenge string) ([]byte, error)
}

// Config describes the relying party.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
	SessionTTL    time.Duration
}

// Verifier begins WebAuthn logins and validates the resulting assertions.
type Verifier struct {
	webauthn *webauthn.WebAuthn
	sessions SessionStore
	ttl      time.Duration
	logger   *slog.Logger
}

func NewVerifier(cfg Config, sessions SessionStore, logger *slog.Logger) (*Verifier, error) {
	w, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("init webauthn: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		webauthn: w,
		sessions: sessions,
		ttl:      cfg.SessionTTL,
		logger:   logger.With("component", "passkey"),
	}, nil
}

// BeginLogin creates assertion options restricted to the stored credential.
func (v *Verifier) BeginLogin(ctx context.Context, principal *domain.Principal, stored domain.PasskeyCredential) (any, error) {
	user := &principalUser{id: []byte(principal.ID), name: principal.Identifier, creds: []domain.PasskeyCredential{stored}}

	options, session, err := v.webauthn.BeginLogin(user)
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := v.sessions.Save(ctx, session.Challenge, data, v.ttl); err != nil {
		return nil, err
	}

	return options, nil
}

// Verify checks the assertion in presented against the stored public key. The
// pending session is consumed whether or not the assertion is valid.
func (v *Verifier) Verify(ctx context.Context, stored, presented domain.PasskeyCredential) (bool, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(presented.Assertion))
	if err != nil {
		return false, fmt.Errorf("parse assertion: %w", err)
	}

	challenge := parsed.Response.CollectedClientData.Challenge
	if presented.Challenge != "" && presented.Challenge != challenge {
		return false, nil
	}

	data, err := v.sessions.Take(ctx, challenge)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, ErrUnknownChallenge
		}
		return false, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return false, fmt.Errorf("decode session: %w", err)
	}
	if !allows(session.AllowedCredentialIDs, stored.CredentialID) {
		return false, nil
	}

	user := &principalUser{id: session.UserID, creds: []domain.PasskeyCredential{stored}}
	cred, err := v.webauthn.ValidateLogin(user, session, parsed)
	if err != nil {
		return false, err
	}

	if cred.Authenticator.CloneWarning {
		v.logger.Warn("authenticator sign count went backwards", "label", stored.Label)
		return false, nil
	}
	return true, nil
}

func allows(allowed [][]byte, id []byte) bool {
	for _, a := range allowed {
		if bytes.Equal(a, id) {
			return true
		}
	}
	return false
}

// principalUser adapts a principal and its stored passkeys to webauthn.User.
type principalUser struct {
	id    []byte
	name  string
	creds []domain.PasskeyCredential
}

func (u *principalUser) WebAuthnID() []byte { return u.id }

func (u *principalUser) WebAuthnName() string { return u.name }

func (u *principalUser) WebAuthnDisplayName() string { return u.name }

func (u *principalUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.creds))
	for i, c := range u.creds {
		creds[i] = webauthn.Credential{
			ID:              c.CredentialID,
			PublicKey:       c.PublicKey,
			AttestationType: c.AttestationType,
			Authenticator: webauthn.Authenticator{
				SignCount: c.SignCount,
			},
		}
	}
	return creds
}
