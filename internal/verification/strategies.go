package verification

import (
	"bytes"
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/pkg/security"
)

// PasswordStrategy grants LOW trust on a hash match.
type PasswordStrategy struct {
	verifier PasswordVerifier
	logger   *slog.Logger
}

func NewPasswordStrategy(v PasswordVerifier, logger *slog.Logger) *PasswordStrategy {
	return &PasswordStrategy{verifier: v, logger: componentLogger(logger, "password")}
}

func (s *PasswordStrategy) Verify(_ context.Context, stored, presented domain.PasswordCredential, _ domain.AuthenticationContext) domain.AuthResult {
	if stored.Hash == "" || presented.Secret == "" {
		return domain.Failure(ReasonInvalidPassword)
	}

	ok, err := s.verifier.Matches(presented.Secret, stored.Hash)
	if err != nil {
		// Undecodable hashes fail closed.
		s.logger.Warn("stored password hash rejected", "error", err)
		return domain.Failure(ReasonInvalidPassword)
	}
	if !ok {
		return domain.Failure(ReasonInvalidPassword)
	}

	return domain.Success(domain.TrustLow, domain.NewFactorSet(domain.FactorPassword))
}

// SocialStrategy grants LOW trust to a provider identity that matches the
// linked account.
type SocialStrategy struct {
	verifier SocialIdentityVerifier
	logger   *slog.Logger
}

// NewSocialStrategy accepts a nil verifier, in which case every social
// login fails with ReasonUnavailable.
func NewSocialStrategy(v SocialIdentityVerifier, logger *slog.Logger) *SocialStrategy {
	return &SocialStrategy{verifier: v, logger: componentLogger(logger, "social")}
}

func (s *SocialStrategy) Verify(ctx context.Context, stored, presented domain.SocialCredential, _ domain.AuthenticationContext) domain.AuthResult {
	if s.verifier == nil {
		return domain.Failure(ReasonUnavailable)
	}
	if presented.Subject == "" || presented.Provider == "" {
		return domain.Failure(ReasonInvalidSocial)
	}
	if stored.Provider != presented.Provider || stored.Subject != presented.Subject {
		return domain.Failure(ReasonInvalidSocial)
	}

	ok, err := s.verifier.IsValid(ctx, presented)
	if err != nil {
		s.logger.Warn("provider identity check failed", "provider", presented.Provider, "error", err)
		return domain.Failure(ReasonInvalidSocial)
	}
	if !ok {
		return domain.Failure(ReasonInvalidSocial)
	}

	return domain.Success(domain.TrustLow, domain.NewFactorSet(domain.FactorSocial))
}

// PasskeyStrategy grants HIGH trust on a valid WebAuthn assertion.
type PasskeyStrategy struct {
	verifier PasskeyVerifier
	logger   *slog.Logger
}

func NewPasskeyStrategy(v PasskeyVerifier, logger *slog.Logger) *PasskeyStrategy {
	return &PasskeyStrategy{verifier: v, logger: componentLogger(logger, "passkey")}
}

func (s *PasskeyStrategy) Verify(ctx context.Context, stored, presented domain.PasskeyCredential, _ domain.AuthenticationContext) domain.AuthResult {
	if s.verifier == nil {
		return domain.Failure(ReasonUnavailable)
	}
	if len(stored.CredentialID) == 0 || len(stored.PublicKey) == 0 || len(presented.Assertion) == 0 {
		return domain.Failure(ReasonInvalidPasskey)
	}
	if len(presented.CredentialID) > 0 && !bytes.Equal(stored.CredentialID, presented.CredentialID) {
		return domain.Failure(ReasonInvalidPasskey)
	}

	ok, err := s.verifier.Verify(ctx, stored, presented)
	if err != nil {
		s.logger.Warn("passkey assertion rejected", "error", err)
		return domain.Failure(ReasonInvalidPasskey)
	}
	if !ok {
		return domain.Failure(ReasonInvalidPasskey)
	}

	return domain.Success(domain.TrustHigh, domain.NewFactorSet(domain.FactorPasskey))
}

// OneTimeCodeStrategy grants MEDIUM trust on a matching code. SMS and email
// codes are compared with the stored code; APP codes are TOTP values checked
// against the enrolled secret. Expiry and single use belong to the code store.
type OneTimeCodeStrategy struct {
	totp TOTPValidator
}

// NewOneTimeCodeStrategy defaults to pquerna/otp validation when totp is nil.
func NewOneTimeCodeStrategy(totp TOTPValidator) *OneTimeCodeStrategy {
	if totp == nil {
		totp = security.VerifyTOTPCode
	}
	return &OneTimeCodeStrategy{totp: totp}
}

func (s *OneTimeCodeStrategy) Verify(_ context.Context, stored, presented domain.OneTimeCodeCredential, _ domain.AuthenticationContext) domain.AuthResult {
	if presented.Code == "" {
		return domain.Failure(ReasonInvalidCode)
	}
	if presented.Channel != "" && presented.Channel != stored.Channel {
		return domain.Failure(ReasonInvalidCode)
	}

	var ok bool
	switch stored.Channel {
	case domain.ChannelApp:
		ok = stored.Secret != "" && s.totp(presented.Code, stored.Secret)
	case domain.ChannelSMS, domain.ChannelEmail:
		ok = stored.Code != "" && subtle.ConstantTimeCompare([]byte(stored.Code), []byte(presented.Code)) == 1
	}
	if !ok {
		return domain.Failure(ReasonInvalidCode)
	}

	return domain.Success(domain.TrustMedium, domain.NewFactorSet(domain.FactorOTP))
}

func componentLogger(logger *slog.Logger, strategy string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "verification", "strategy", strategy)
}
