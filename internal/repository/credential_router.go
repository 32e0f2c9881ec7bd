package repository

import (
	"context"
	"errors"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

var (
	_ domain.PrincipalStore   = (*PostgresPrincipalRepo)(nil)
	_ domain.CredentialStore  = (*PostgresPrincipalRepo)(nil)
	_ domain.Registry         = (*PostgresPrincipalRepo)(nil)
	_ domain.AuditLogger      = (*PostgresPrincipalRepo)(nil)
	_ domain.OneTimeCodeStore = (*RedisCodeStore)(nil)
	_ domain.CredentialStore  = (*CredentialRouter)(nil)
	_ PendingCodeFinder       = (*RedisCodeStore)(nil)
)

// PendingCodeFinder looks up a delivered, unexpired one-time code.
type PendingCodeFinder interface {
	Find(ctx context.Context, principalID string) (domain.OneTimeCodeCredential, error)
}

// CredentialRouter answers one-time code lookups from the pending code store
// first and falls back to the durable store, where authenticator-app secrets
// live. Every other type goes straight to the durable store.
type CredentialRouter struct {
	durable domain.CredentialStore
	pending PendingCodeFinder
}

func NewCredentialRouter(durable domain.CredentialStore, pending PendingCodeFinder) *CredentialRouter {
	return &CredentialRouter{durable: durable, pending: pending}
}

func (r *CredentialRouter) FindByPrincipalAndType(ctx context.Context, principalID string, t domain.CredentialType) (domain.Credential, error) {
	if t == domain.CredentialOneTimeCode && r.pending != nil {
		code, err := r.pending.Find(ctx, principalID)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return r.durable.FindByPrincipalAndType(ctx, principalID, t)
}
