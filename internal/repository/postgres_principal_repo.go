package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// Postgres SQLSTATE codes.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Schema creates the tables the repository reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS principals (
	id          UUID PRIMARY KEY,
	identifier  TEXT NOT NULL UNIQUE,
	type        TEXT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	mfa_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	principal_id UUID NOT NULL REFERENCES principals(id),
	type         TEXT NOT NULL,
	payload      JSONB NOT NULL,
	verified     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (principal_id, type)
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id           BIGSERIAL PRIMARY KEY,
	principal_id UUID,
	event_type   TEXT NOT NULL,
	metadata     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL
);
`

// PostgresPrincipalRepo implements the principal, credential, registry and
// audit contracts on PostgreSQL.
type PostgresPrincipalRepo struct {
	db *sql.DB
}

// NewPostgresPrincipalRepo creates a new repository instance.
func NewPostgresPrincipalRepo(db *sql.DB) *PostgresPrincipalRepo {
	return &PostgresPrincipalRepo{db: db}
}

// EnsureSchema applies Schema. It is idempotent.
func (r *PostgresPrincipalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const principalColumns = `id, identifier, type, active, mfa_enabled, created_at, updated_at`

// FindByIdentifier retrieves a principal by its external identifier.
func (r *PostgresPrincipalRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE identifier = $1`
	return r.scanPrincipal(r.db.QueryRowContext(ctx, query, identifier))
}

// FindByID retrieves a principal by its UUID.
func (r *PostgresPrincipalRepo) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`
	return r.scanPrincipal(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresPrincipalRepo) scanPrincipal(row *sql.Row) (*domain.Principal, error) {
	p := &domain.Principal{}
	err := row.Scan(
		&p.ID,
		&p.Identifier,
		&p.Type,
		&p.Active,
		&p.MFAEnabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return p, nil
}

// FindByPrincipalAndType loads the stored credential of type t.
func (r *PostgresPrincipalRepo) FindByPrincipalAndType(ctx context.Context, principalID string, t domain.CredentialType) (domain.Credential, error) {
	query := `SELECT payload, verified FROM credentials WHERE principal_id = $1 AND type = $2`

	var (
		payload  []byte
		verified bool
	)
	err := r.db.QueryRowContext(ctx, query, principalID, string(t)).Scan(&payload, &verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return decodeCredential(t, payload, verified)
}

// CreatePrincipal inserts the principal and its first credential atomically.
func (r *PostgresPrincipalRepo) CreatePrincipal(ctx context.Context, p *domain.Principal, initial domain.Credential) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO principals (id, identifier, type, active, mfa_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query, p.ID, p.Identifier, string(p.Type), p.Active, p.MFAEnabled, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create principal: %w", err)
	}

	if initial != nil {
		if err := upsertCredential(ctx, tx, p.ID, initial); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveCredential inserts or replaces the credential of the same type.
func (r *PostgresPrincipalRepo) SaveCredential(ctx context.Context, principalID string, c domain.Credential) error {
	return upsertCredential(ctx, r.db, principalID, c)
}

// SetMFAEnabled toggles the principal-level step-up flag.
func (r *PostgresPrincipalRepo) SetMFAEnabled(ctx context.Context, principalID string, enabled bool) error {
	query := `UPDATE principals SET mfa_enabled = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, enabled, time.Now().UTC(), principalID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LogSecurityEvent inserts an immutable record into the audit_logs table.
// Request context such as IP or user agent is never recorded.
func (r *PostgresPrincipalRepo) LogSecurityEvent(ctx context.Context, principalID, eventType string, metadata map[string]interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO audit_logs (principal_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4)
	`

	// Failed logins for unknown identifiers have no principal.
	var pid sql.NullString
	if principalID != "" {
		pid.String = principalID
		pid.Valid = true
	}

	_, err = r.db.ExecContext(ctx, query, pid, eventType, metaJSON, time.Now().UTC())
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertCredential(ctx context.Context, db execer, principalID string, c domain.Credential) error {
	payload, err := encodeCredential(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO credentials (principal_id, type, payload, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (principal_id, type)
		DO UPDATE SET payload = EXCLUDED.payload, verified = EXCLUDED.verified, updated_at = EXCLUDED.updated_at
	`
	_, err = db.ExecContext(ctx, query, principalID, string(c.Type()), payload, c.IsVerified(), time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// encodeCredential serialises only the stored side of a credential; presented
// fields are tagged out of JSON on the domain types.
func encodeCredential(c domain.Credential) ([]byte, error) {
	switch c.(type) {
	case domain.PasswordCredential, domain.SocialCredential, domain.PasskeyCredential, domain.OneTimeCodeCredential:
	default:
		return nil, fmt.Errorf("unsupported credential %T", c)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	return payload, nil
}

func decodeCredential(t domain.CredentialType, payload []byte, verified bool) (domain.Credential, error) {
	switch t {
	case domain.CredentialPassword:
		var c domain.PasswordCredential
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode %s credential: %w", t, err)
		}
		c.Verified = verified
		return c, nil
	case domain.CredentialSocial:
		var c domain.SocialCredential
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode %s credential: %w", t, err)
		}
		c.Verified = verified
		return c, nil
	case domain.CredentialPasskey:
		var c domain.PasskeyCredential
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode %s credential: %w", t, err)
		}
		c.Verified = verified
		return c, nil
	case domain.CredentialOneTimeCode:
		var c domain.OneTimeCodeCredential
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode %s credential: %w", t, err)
		}
		c.Verified = verified
		return c, nil
	}
	return nil, fmt.Errorf("unknown credential type %q", t)
}
