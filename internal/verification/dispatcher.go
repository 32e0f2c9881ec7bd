package verification

import (
	"context"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// Dispatcher routes a presented credential to the strategy for its variant.
// It is the only entry point callers use and has no side effects of its own.
type Dispatcher struct {
	password *PasswordStrategy
	social   *SocialStrategy
	passkey  *PasskeyStrategy
	otp      *OneTimeCodeStrategy
}

// NewDispatcher wires one strategy per credential variant.
func NewDispatcher(password *PasswordStrategy, social *SocialStrategy, passkey *PasskeyStrategy, otp *OneTimeCodeStrategy) *Dispatcher {
	return &Dispatcher{
		password: password,
		social:   social,
		passkey:  passkey,
		otp:      otp,
	}
}

// Verify returns a failure result, never an error, when the stored and
// presented credentials are of different variants.
func (d *Dispatcher) Verify(ctx context.Context, stored, presented domain.Credential, actx domain.AuthenticationContext) domain.AuthResult {
	if stored == nil || presented == nil || stored.Type() != presented.Type() {
		return domain.Failure(ReasonUnsupported)
	}

	switch p := presented.(type) {
	case domain.PasswordCredential:
		s, ok := stored.(domain.PasswordCredential)
		if !ok || d.password == nil {
			break
		}
		return d.password.Verify(ctx, s, p, actx)
	case domain.SocialCredential:
		s, ok := stored.(domain.SocialCredential)
		if !ok || d.social == nil {
			break
		}
		return d.social.Verify(ctx, s, p, actx)
	case domain.PasskeyCredential:
		s, ok := stored.(domain.PasskeyCredential)
		if !ok || d.passkey == nil {
			break
		}
		return d.passkey.Verify(ctx, s, p, actx)
	case domain.OneTimeCodeCredential:
		s, ok := stored.(domain.OneTimeCodeCredential)
		if !ok || d.otp == nil {
			break
		}
		return d.otp.Verify(ctx, s, p, actx)
	}

	return domain.Failure(ReasonUnsupported)
}
