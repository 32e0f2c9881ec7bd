package domain

import (
	"context"
	"time"
)

// PrincipalType distinguishes human users from machine identities.
type PrincipalType string

const (
	PrincipalUser           PrincipalType = "USER"
	PrincipalServiceAccount PrincipalType = "SERVICE_ACCOUNT"
)

// Valid reports whether t is one of the known principal types.
func (t PrincipalType) Valid() bool {
	return t == PrincipalUser || t == PrincipalServiceAccount
}

// Principal represents an authenticatable identity.
// Ownership lives in the external store; the engine only reads it.
type Principal struct {
	ID         string        `json:"id"`
	Identifier string        `json:"identifier"` // Unique external identifier, usually an email
	Type       PrincipalType `json:"type"`
	Active     bool          `json:"active"`
	MFAEnabled bool          `json:"mfa_enabled"` // Principal-level step-up policy flag
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// PrincipalStore defines the contract for principal lookups.
// This interface is implemented in the 'internal/repository' package.
type PrincipalStore interface {
	// FindByIdentifier returns ErrNotFound when no principal owns the identifier.
	FindByIdentifier(ctx context.Context, identifier string) (*Principal, error)
	FindByID(ctx context.Context, id string) (*Principal, error)
}

// CredentialStore defines how stored credentials are resolved for a principal.
type CredentialStore interface {
	// FindByPrincipalAndType returns ErrNotFound when the type is not provisioned.
	FindByPrincipalAndType(ctx context.Context, principalID string, t CredentialType) (Credential, error)
}

// Registry creates principals and their credentials at signup or enrolment.
type Registry interface {
	CreatePrincipal(ctx context.Context, p *Principal, initial Credential) error
	SaveCredential(ctx context.Context, principalID string, c Credential) error
	SetMFAEnabled(ctx context.Context, principalID string, enabled bool) error
}

// OneTimeCodeStore holds delivered SMS/email codes until they expire or are used.
type OneTimeCodeStore interface {
	Issue(ctx context.Context, principalID string, code OneTimeCodeCredential, ttl time.Duration) error
	// Consume atomically removes the pending code and reports whether it matched.
	Consume(ctx context.Context, principalID, code string) (bool, error)
}

// AuditLogger records security events.
// Implementations must not persist the request's AuthenticationContext.
type AuditLogger interface {
	LogSecurityEvent(ctx context.Context, principalID, eventType string, metadata map[string]interface{}) error
}
