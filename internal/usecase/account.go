package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
	"github.com/FilipeAphrody/sentinel-trust/pkg/security"
)

// MinPasswordLength is enforced at signup only.
const MinPasswordLength = 8

// Register creates a principal with a password credential.
func (u *AuthUsecase) Register(ctx context.Context, identifier, password string, ptype domain.PrincipalType) (*domain.Principal, error) {
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" || len(password) < MinPasswordLength {
		return nil, ErrInvalidInput
	}
	if ptype == "" {
		ptype = domain.PrincipalUser
	}
	if !ptype.Valid() {
		return nil, fmt.Errorf("%w: unknown principal type %q", ErrInvalidInput, ptype)
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	p := &domain.Principal{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Type:       ptype,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.registry.CreatePrincipal(ctx, p, domain.PasswordCredential{Hash: hash, Verified: true}); err != nil {
		return nil, fmt.Errorf("create principal: %w", err)
	}

	u.logEvent(ctx, p.ID, EventRegistered, map[string]interface{}{"type": p.Type})
	return p, nil
}

// Refresh exchanges a refresh token for a new FULL_ACCESS pair at the trust
// level the refresh token was issued with.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*domain.Token, error) {
	claims, err := u.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	principal, err := u.activePrincipal(ctx, claims.Subject())
	if err != nil {
		return nil, err
	}

	tok, err := u.tokens.IssueFullAccess(principal.ID, principal.Identifier, claims.TrustLevel())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	u.logEvent(ctx, principal.ID, EventTokenRefreshed, map[string]interface{}{"trust_level": claims.TrustLevel().String()})
	return tok, nil
}

// SendOTP issues a fresh code for the principal behind an MFA_PENDING token
// and hands it to the sender. Any earlier pending code is replaced.
func (u *AuthUsecase) SendOTP(ctx context.Context, mfaToken string, channel domain.DeliveryChannel) error {
	if channel != domain.ChannelSMS && channel != domain.ChannelEmail {
		return fmt.Errorf("%w: unsupported delivery channel %q", ErrInvalidInput, channel)
	}

	claims, err := u.tokens.VerifyAccess(mfaToken, domain.TokenMFAPending)
	if err != nil {
		return err
	}

	principal, err := u.activePrincipal(ctx, claims.Subject())
	if err != nil {
		return err
	}

	code, err := security.GenerateNumericCode(u.cfg.CodeDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	cred := domain.OneTimeCodeCredential{Code: code, Channel: channel, Verified: true}
	if err := u.codes.Issue(ctx, principal.ID, cred, u.cfg.CodeTTL); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := u.sender.Send(ctx, principal, channel, code); err != nil {
		return fmt.Errorf("deliver code: %w", err)
	}

	u.logEvent(ctx, principal.ID, EventOTPSent, map[string]interface{}{"channel": channel})
	return nil
}

// EnrollTOTP generates an authenticator-app secret. It stays unconfirmed, and
// unusable for login, until ConfirmTOTP sees a valid code from the app. A
// confirmed secret is never replaced; it returns ErrAlreadyEnrolled.
func (u *AuthUsecase) EnrollTOTP(ctx context.Context, claims *token.Claims) (security.TOTPKey, error) {
	principal, err := u.activePrincipal(ctx, claims.Subject())
	if err != nil {
		return security.TOTPKey{}, err
	}
	if err := u.checkNotEnrolled(ctx, principal); err != nil {
		return security.TOTPKey{}, err
	}

	key, err := security.GenerateTOTPKey(u.cfg.TOTPIssuer, principal.Identifier)
	if err != nil {
		return security.TOTPKey{}, err
	}

	cred := domain.OneTimeCodeCredential{Channel: domain.ChannelApp, Secret: key.Secret}
	if err := u.registry.SaveCredential(ctx, principal.ID, cred); err != nil {
		return security.TOTPKey{}, fmt.Errorf("save totp credential: %w", err)
	}

	u.logEvent(ctx, principal.ID, EventTOTPEnrolled, nil)
	return key, nil
}

// ConfirmTOTP marks the enrolled secret verified and turns on step-up for the
// principal.
func (u *AuthUsecase) ConfirmTOTP(ctx context.Context, claims *token.Claims, code string, actx domain.AuthenticationContext) error {
	principal, err := u.activePrincipal(ctx, claims.Subject())
	if err != nil {
		return err
	}

	stored, err := u.credentials.FindByPrincipalAndType(ctx, principal.ID, domain.CredentialOneTimeCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("load credential: %w", err)
	}
	otp, ok := stored.(domain.OneTimeCodeCredential)
	if !ok || otp.Channel != domain.ChannelApp {
		return ErrInvalidCredentials
	}

	presented := domain.OneTimeCodeCredential{Code: code, Channel: domain.ChannelApp}
	if res := u.dispatcher.Verify(ctx, otp, presented, actx); !res.Authenticated {
		return ErrInvalidCredentials
	}

	otp.Verified = true
	if err := u.registry.SaveCredential(ctx, principal.ID, otp); err != nil {
		return fmt.Errorf("save totp credential: %w", err)
	}
	if err := u.registry.SetMFAEnabled(ctx, principal.ID, true); err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}

	u.logEvent(ctx, principal.ID, EventTOTPConfirmed, nil)
	return nil
}

// checkNotEnrolled fails when a confirmed APP secret exists. A pending
// SMS/email code shadows the durable credential in lookups, so MFA-enabled
// principals are refused while one is outstanding.
func (u *AuthUsecase) checkNotEnrolled(ctx context.Context, principal *domain.Principal) error {
	stored, err := u.credentials.FindByPrincipalAndType(ctx, principal.ID, domain.CredentialOneTimeCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load credential: %w", err)
	}

	otp, ok := stored.(domain.OneTimeCodeCredential)
	if !ok {
		return nil
	}
	if otp.Channel == domain.ChannelApp && otp.Verified {
		return ErrAlreadyEnrolled
	}
	if otp.Channel != domain.ChannelApp && principal.MFAEnabled {
		return ErrAlreadyEnrolled
	}
	return nil
}

// BeginPasskey returns WebAuthn assertion options for the principal's passkey.
func (u *AuthUsecase) BeginPasskey(ctx context.Context, identifier string) (any, error) {
	if u.passkeys == nil {
		return nil, ErrUnavailable
	}

	principal, err := u.principals.FindByIdentifier(ctx, NormalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if !principal.Active {
		return nil, ErrInvalidCredentials
	}

	stored, err := u.loadStored(ctx, principal.ID, domain.CredentialPasskey)
	if err != nil {
		return nil, err
	}
	passkey, ok := stored.(domain.PasskeyCredential)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return u.passkeys.BeginLogin(ctx, principal, passkey)
}

// Principal returns the active principal behind verified claims.
func (u *AuthUsecase) Principal(ctx context.Context, claims *token.Claims) (*domain.Principal, error) {
	return u.activePrincipal(ctx, claims.Subject())
}

func (u *AuthUsecase) activePrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	principal, err := u.principals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if !principal.Active {
		return nil, ErrInvalidCredentials
	}
	return principal, nil
}
