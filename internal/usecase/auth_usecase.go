package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
	"github.com/FilipeAphrody/sentinel-trust/internal/trust"
	"github.com/FilipeAphrody/sentinel-trust/internal/verification"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnavailable        = errors.New("feature not configured")
	ErrAlreadyEnrolled    = errors.New("authenticator app already enrolled")
)

// Failure reasons added on top of the verification strategies' own.
const (
	ReasonInvalidCredentials = "Invalid credentials"
	ReasonInvalidMFAToken    = "Invalid or expired MFA token"
	ReasonCodeAlreadyUsed    = "Code already used"
	ReasonFactorNotRequired  = "Factor not required"
)

// Security event types written to the audit log.
const (
	EventLoginSuccess   = "LOGIN_SUCCESS"
	EventLoginFailed    = "LOGIN_FAILED"
	EventMFARequired    = "MFA_REQUIRED"
	EventMFASuccess     = "MFA_SUCCESS"
	EventMFAFailed      = "MFA_FAILED"
	EventRegistered     = "REGISTERED"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventOTPSent        = "OTP_SENT"
	EventTOTPEnrolled   = "TOTP_ENROLLED"
	EventTOTPConfirmed  = "TOTP_CONFIRMED"
)

// PasswordHasher produces the stored hash at signup.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// CodeSender delivers a one-time code over SMS or email.
type CodeSender interface {
	Send(ctx context.Context, principal *domain.Principal, channel domain.DeliveryChannel, code string) error
}

// PasskeyChallenger starts a WebAuthn assertion for a stored passkey.
// The returned options are serialised to the browser as-is.
type PasskeyChallenger interface {
	BeginLogin(ctx context.Context, principal *domain.Principal, stored domain.PasskeyCredential) (any, error)
}

// Config holds the usecase tunables.
type Config struct {
	CodeTTL    time.Duration
	CodeDigits int
	TOTPIssuer string
}

// Deps groups the collaborators of AuthUsecase.
type Deps struct {
	Principals  domain.PrincipalStore
	Credentials domain.CredentialStore
	Registry    domain.Registry
	Audit       domain.AuditLogger
	Codes       domain.OneTimeCodeStore
	Sender      CodeSender
	Passkeys    PasskeyChallenger // optional
	Hasher      PasswordHasher
	Dispatcher  *verification.Dispatcher
	Policy      trust.StepUpPolicy
	Tokens      *token.Service
	Logger      *slog.Logger
}

// AuthUsecase orchestrates verification, step-up and token issuance.
// It keeps no per-request state and is safe for concurrent use.
type AuthUsecase struct {
	principals  domain.PrincipalStore
	credentials domain.CredentialStore
	registry    domain.Registry
	audit       domain.AuditLogger
	codes       domain.OneTimeCodeStore
	sender      CodeSender
	passkeys    PasskeyChallenger
	hasher      PasswordHasher
	dispatcher  *verification.Dispatcher
	policy      trust.StepUpPolicy
	tokens      *token.Service
	cfg         Config
	logger      *slog.Logger
}

func NewAuthUsecase(deps Deps, cfg Config) *AuthUsecase {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.CodeDigits <= 0 {
		cfg.CodeDigits = 6
	}
	if cfg.TOTPIssuer == "" {
		cfg.TOTPIssuer = "Sentinel"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthUsecase{
		principals:  deps.Principals,
		credentials: deps.Credentials,
		registry:    deps.Registry,
		audit:       deps.Audit,
		codes:       deps.Codes,
		sender:      deps.Sender,
		passkeys:    deps.Passkeys,
		hasher:      deps.Hasher,
		dispatcher:  deps.Dispatcher,
		policy:      deps.Policy,
		tokens:      deps.Tokens,
		cfg:         cfg,
		logger:      logger.With("component", "auth"),
	}
}

// Authenticate verifies a first factor and returns either a FULL_ACCESS token
// or, when the step-up policy demands another factor, an MFA_PENDING token
// paired with a partial result. The error return is reserved for
// infrastructure faults; rejected credentials come back as a failed result.
func (u *AuthUsecase) Authenticate(ctx context.Context, identifier string, credType domain.CredentialType, presented domain.Credential, actx domain.AuthenticationContext) (domain.AuthResult, *domain.Token, error) {
	identifier = NormalizeIdentifier(identifier)

	principal, err := u.principals.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.logEvent(ctx, "", EventLoginFailed, map[string]interface{}{"credential_type": credType, "reason": "unknown_principal"})
			return domain.Failure(ReasonInvalidCredentials), nil, nil
		}
		return domain.AuthResult{}, nil, fmt.Errorf("load principal: %w", err)
	}
	if !principal.Active {
		u.logEvent(ctx, principal.ID, EventLoginFailed, map[string]interface{}{"credential_type": credType, "reason": "inactive"})
		return domain.Failure(ReasonInvalidCredentials), nil, nil
	}

	if presented == nil || presented.Type() != credType {
		return domain.Failure(verification.ReasonUnsupported), nil, nil
	}

	stored, err := u.loadStored(ctx, principal.ID, credType)
	if err != nil {
		return domain.AuthResult{}, nil, err
	}
	if stored == nil {
		u.logEvent(ctx, principal.ID, EventLoginFailed, map[string]interface{}{"credential_type": credType, "reason": "not_provisioned"})
		return domain.Failure(ReasonInvalidCredentials), nil, nil
	}

	result, err := u.verify(ctx, principal.ID, stored, presented, actx)
	if err != nil {
		return domain.AuthResult{}, nil, err
	}
	if !result.Authenticated {
		u.logEvent(ctx, principal.ID, EventLoginFailed, map[string]interface{}{"credential_type": credType, "reason": result.FailureReason})
		return result, nil, nil
	}

	sessionID := uuid.NewString()
	mfa := u.policy.Evaluate(principal, actx, result.TrustLevel, result.Completed, sessionID)

	if mfa.Required {
		tok, err := u.tokens.IssueMFAPending(principal.ID, principal.Identifier, result.TrustLevel, mfa)
		if err != nil {
			return domain.AuthResult{}, nil, fmt.Errorf("issue mfa token: %w", err)
		}
		u.logEvent(ctx, principal.ID, EventMFARequired, map[string]interface{}{
			"credential_type": credType,
			"trust_level":     result.TrustLevel.String(),
			"mfa_session_id":  sessionID,
		})
		return domain.PartialSuccess(result.TrustLevel, result.Completed, mfa), tok, nil
	}

	tok, err := u.tokens.IssueFullAccess(principal.ID, principal.Identifier, result.TrustLevel)
	if err != nil {
		return domain.AuthResult{}, nil, fmt.Errorf("issue token: %w", err)
	}
	u.logEvent(ctx, principal.ID, EventLoginSuccess, map[string]interface{}{
		"credential_type": credType,
		"trust_level":     result.TrustLevel.String(),
	})
	return domain.SuccessWithMFA(result.TrustLevel, result.Completed, mfa), tok, nil
}

// CompleteMFA upgrades an MFA_PENDING session with a second factor. The
// principal and the outstanding factors are taken from the verified token,
// never from the request. Only an outstanding factor is accepted, unless it
// reaches the policy's satisfied level on its own. When factors remain, a new
// MFA_PENDING token for the same session is returned. A failed attempt
// leaves the pending token usable until it expires.
func (u *AuthUsecase) CompleteMFA(ctx context.Context, mfaToken, mfaSessionID string, factor domain.FactorType, presented domain.Credential, actx domain.AuthenticationContext) (domain.AuthResult, *domain.Token, error) {
	claims, err := u.tokens.VerifyAccess(mfaToken, domain.TokenMFAPending)
	if err != nil {
		return domain.Failure(ReasonInvalidMFAToken), nil, nil
	}
	if subtle.ConstantTimeCompare([]byte(claims.MFASessionID()), []byte(mfaSessionID)) != 1 {
		u.logEvent(ctx, claims.Subject(), EventMFAFailed, map[string]interface{}{"reason": "session_mismatch"})
		return domain.Failure(ReasonInvalidMFAToken), nil, nil
	}

	credType, ok := domain.ParseCredentialType(string(factor))
	if !ok || presented == nil || presented.Type() != credType {
		return domain.Failure(verification.ReasonUnsupported), nil, nil
	}

	firstFactors := claims.CompletedFactors()
	if firstFactors.Has(factor) {
		u.logEvent(ctx, claims.Subject(), EventMFAFailed, map[string]interface{}{"factor": factor, "reason": "already_completed"})
		return domain.Failure(ReasonFactorNotRequired), nil, nil
	}
	pending := domain.RequireMFA(claims.MFASessionID(), claims.RequiredFactors(), firstFactors)

	principal, err := u.principals.FindByID(ctx, claims.Subject())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Failure(ReasonInvalidCredentials), nil, nil
		}
		return domain.AuthResult{}, nil, fmt.Errorf("load principal: %w", err)
	}
	if !principal.Active {
		return domain.Failure(ReasonInvalidCredentials), nil, nil
	}

	stored, err := u.loadStored(ctx, principal.ID, credType)
	if err != nil {
		return domain.AuthResult{}, nil, err
	}
	if stored == nil {
		u.logEvent(ctx, principal.ID, EventMFAFailed, map[string]interface{}{"factor": factor, "reason": "not_provisioned"})
		return domain.Failure(ReasonInvalidCredentials), nil, nil
	}

	result, err := u.verify(ctx, principal.ID, stored, presented, actx)
	if err != nil {
		return domain.AuthResult{}, nil, err
	}
	if !result.Authenticated {
		u.logEvent(ctx, principal.ID, EventMFAFailed, map[string]interface{}{"factor": factor, "reason": result.FailureReason})
		return result, nil, nil
	}

	if !pending.Remaining().Has(factor) && !u.policy.Satisfies(result.TrustLevel) {
		u.logEvent(ctx, principal.ID, EventMFAFailed, map[string]interface{}{"factor": factor, "reason": "not_required"})
		return domain.Failure(ReasonFactorNotRequired), nil, nil
	}

	upgraded := trust.Upgrade(claims.TrustLevel(), result)
	combined := trust.Combine(domain.Success(claims.TrustLevel(), firstFactors), result)

	next := domain.RequireMFA(pending.SessionID, pending.RequiredFactors, combined.Completed)
	if !next.IsComplete() && !u.policy.Satisfies(upgraded) {
		tok, err := u.tokens.IssueMFAPending(principal.ID, principal.Identifier, upgraded, next)
		if err != nil {
			return domain.AuthResult{}, nil, fmt.Errorf("issue mfa token: %w", err)
		}
		u.logEvent(ctx, principal.ID, EventMFARequired, map[string]interface{}{
			"factor":         factor,
			"trust_level":    upgraded.String(),
			"mfa_session_id": pending.SessionID,
		})
		return domain.PartialSuccess(upgraded, combined.Completed, next), tok, nil
	}

	tok, err := u.tokens.IssueFullAccess(principal.ID, principal.Identifier, upgraded)
	if err != nil {
		return domain.AuthResult{}, nil, fmt.Errorf("issue token: %w", err)
	}

	u.logEvent(ctx, principal.ID, EventMFASuccess, map[string]interface{}{
		"factor":         factor,
		"previous_level": claims.TrustLevel().String(),
		"trust_level":    upgraded.String(),
	})
	return domain.Success(upgraded, combined.Completed), tok, nil
}

// loadStored returns nil without error when the credential is missing or not
// yet confirmed.
func (u *AuthUsecase) loadStored(ctx context.Context, principalID string, credType domain.CredentialType) (domain.Credential, error) {
	stored, err := u.credentials.FindByPrincipalAndType(ctx, principalID, credType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if !stored.IsVerified() {
		return nil, nil
	}
	return stored, nil
}

// verify dispatches and then burns delivered codes so each one works once.
func (u *AuthUsecase) verify(ctx context.Context, principalID string, stored, presented domain.Credential, actx domain.AuthenticationContext) (domain.AuthResult, error) {
	result := u.dispatcher.Verify(ctx, stored, presented, actx)
	if !result.Authenticated {
		return result, nil
	}

	otp, ok := stored.(domain.OneTimeCodeCredential)
	if !ok || otp.Channel == domain.ChannelApp {
		return result, nil
	}

	code := presented.(domain.OneTimeCodeCredential).Code
	consumed, err := u.codes.Consume(ctx, principalID, code)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("consume code: %w", err)
	}
	if !consumed {
		return domain.Failure(ReasonCodeAlreadyUsed), nil
	}
	return result, nil
}

func (u *AuthUsecase) logEvent(ctx context.Context, principalID, eventType string, metadata map[string]interface{}) {
	if u.audit == nil {
		return
	}
	if err := u.audit.LogSecurityEvent(ctx, principalID, eventType, metadata); err != nil {
		u.logger.Warn("failed to write audit event", "event", eventType, "error", err)
	}
}

// NormalizeIdentifier trims and lower-cases an external identifier.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
