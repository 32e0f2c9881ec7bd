package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/mocks"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
	"github.com/FilipeAphrody/sentinel-trust/internal/trust"
	"github.com/FilipeAphrody/sentinel-trust/internal/usecase"
	"github.com/FilipeAphrody/sentinel-trust/internal/verification"
	"github.com/FilipeAphrody/sentinel-trust/pkg/security"
)

const (
	alicePassword = "correct horse battery"
	baseTTL       = 15 * time.Minute
)

var fastParams = security.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type acceptPasskeys struct{}

func (acceptPasskeys) Verify(context.Context, domain.PasskeyCredential, domain.PasskeyCredential) (bool, error) {
	return true, nil
}

type acceptSocial struct{}

func (acceptSocial) IsValid(context.Context, domain.SocialCredential) (bool, error) {
	return true, nil
}

type fixture struct {
	uc     *usecase.AuthUsecase
	store  *mocks.Store
	codes  *mocks.CodeStore
	sender *mocks.RecordingSender
	tokens *token.Service
	now    time.Time
	alice  *domain.Principal
}

func newFixture(t *testing.T, opts ...func(*usecase.Deps)) *fixture {
	t.Helper()

	now := time.Now().Truncate(time.Second)
	keys, err := token.NewKeyring("test", []byte("usecase-test-secret-key-32-bytes!!"), nil)
	require.NoError(t, err)
	cfg := token.DefaultConfig()
	cfg.BaseTTL = baseTTL
	tokens := token.NewService(keys, cfg, token.WithClock(func() time.Time { return now }))

	hasher := security.NewPasswordHasher(fastParams)
	hash, err := hasher.Hash(alicePassword)
	require.NoError(t, err)

	codes := mocks.NewCodeStore()
	store := mocks.NewStore()
	store.Codes = codes

	alice := &domain.Principal{ID: "alice-id", Identifier: "alice@example.com", Type: domain.PrincipalUser, Active: true}
	store.Add(alice,
		domain.PasswordCredential{Hash: hash, Verified: true},
		domain.PasskeyCredential{CredentialID: []byte("cred-1"), PublicKey: []byte("pk"), Verified: true},
	)

	sender := &mocks.RecordingSender{}
	dispatcher := verification.NewDispatcher(
		verification.NewPasswordStrategy(hasher, nil),
		verification.NewSocialStrategy(nil, nil),
		verification.NewPasskeyStrategy(acceptPasskeys{}, nil),
		verification.NewOneTimeCodeStrategy(nil),
	)

	deps := usecase.Deps{
		Principals:  store,
		Credentials: store,
		Registry:    store,
		Audit:       store,
		Codes:       codes,
		Sender:      sender,
		Hasher:      hasher,
		Dispatcher:  dispatcher,
		Policy:      trust.DefaultPolicy(),
		Tokens:      tokens,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	uc := usecase.NewAuthUsecase(deps, usecase.Config{})

	return &fixture{uc: uc, store: store, codes: codes, sender: sender, tokens: tokens, now: now, alice: alice}
}

func withSocial(d *usecase.Deps) {
	d.Dispatcher = verification.NewDispatcher(
		verification.NewPasswordStrategy(security.NewPasswordHasher(fastParams), nil),
		verification.NewSocialStrategy(acceptSocial{}, nil),
		verification.NewPasskeyStrategy(acceptPasskeys{}, nil),
		verification.NewOneTimeCodeStrategy(nil),
	)
}

func actx(t *testing.T, suspicious bool) domain.AuthenticationContext {
	t.Helper()
	c, err := domain.NewAuthenticationContext("203.0.113.7", "Mozilla/5.0", "WEB", time.Now(), suspicious)
	require.NoError(t, err)
	return c
}

func (f *fixture) loginPassword(t *testing.T, identifier, password string, suspicious bool) (domain.AuthResult, *domain.Token) {
	t.Helper()
	res, tok, err := f.uc.Authenticate(context.Background(), identifier, domain.CredentialPassword,
		domain.PasswordCredential{Secret: password}, actx(t, suspicious))
	require.NoError(t, err)
	return res, tok
}

func TestAuthenticate_PasswordWithoutStepUp(t *testing.T) {
	f := newFixture(t)

	res, tok := f.loginPassword(t, "Alice@Example.com ", alicePassword, false)
	assert.True(t, res.Authenticated)
	assert.Equal(t, domain.TrustLow, res.TrustLevel)
	assert.False(t, res.MFARequired())
	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenFullAccess, tok.Kind)
	assert.Equal(t, baseTTL, tok.AccessExpiresAt.Sub(f.now))
	assert.NotEmpty(t, tok.RefreshToken)
	assert.Equal(t, []string{usecase.EventLoginSuccess}, f.store.EventTypes())
}

func TestAuthenticate_SuspiciousLoginRequiresMFA(t *testing.T) {
	f := newFixture(t)

	res, tok := f.loginPassword(t, "alice@example.com", alicePassword, true)
	assert.False(t, res.Authenticated)
	assert.Equal(t, domain.TrustLow, res.TrustLevel)
	require.True(t, res.MFARequired())
	assert.True(t, res.MFA.Remaining().Has(domain.FactorOTP))
	assert.True(t, res.Completed.Has(domain.FactorPassword))

	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenMFAPending, tok.Kind)
	assert.Empty(t, tok.RefreshToken)
	assert.Equal(t, 5*time.Minute, tok.AccessExpiresAt.Sub(f.now))
	assert.Equal(t, res.MFA.SessionID, tok.MFASessionID)
	assert.Equal(t, []string{usecase.EventMFARequired}, f.store.EventTypes())
}

func TestCompleteMFA_UpgradesToMedium(t *testing.T) {
	f := newFixture(t)
	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)
	require.NotNil(t, pending)

	require.NoError(t, f.codes.Issue(context.Background(), f.alice.ID,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS, Verified: true}, 5*time.Minute))

	code := domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS}
	done, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP, code, actx(t, true))
	require.NoError(t, err)
	assert.True(t, done.Authenticated)
	assert.Equal(t, domain.TrustMedium, done.TrustLevel)
	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenFullAccess, tok.Kind)
	assert.Equal(t, 2*baseTTL, tok.AccessExpiresAt.Sub(f.now))
	assert.Equal(t, f.alice.ID, tok.PrincipalID)
	assert.Equal(t, domain.NewFactorSet(domain.FactorPassword, domain.FactorOTP), done.Completed)

	// the same code cannot be replayed
	again, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP, code, actx(t, true))
	require.NoError(t, err)
	assert.False(t, again.Authenticated)
	assert.Nil(t, tok)
}

func TestCompleteMFA_WrongCodeKeepsPendingTokenUsable(t *testing.T) {
	f := newFixture(t)
	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)
	require.NoError(t, f.codes.Issue(context.Background(), f.alice.ID,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS, Verified: true}, 5*time.Minute))

	bad, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP,
		domain.OneTimeCodeCredential{Code: "000000"}, actx(t, true))
	require.NoError(t, err)
	assert.False(t, bad.Authenticated)
	assert.Equal(t, verification.ReasonInvalidCode, bad.FailureReason)
	assert.Nil(t, tok)

	good, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP,
		domain.OneTimeCodeCredential{Code: "123456"}, actx(t, true))
	require.NoError(t, err)
	assert.True(t, good.Authenticated)
	assert.NotNil(t, tok)
	assert.Contains(t, f.store.EventTypes(), usecase.EventMFAFailed)
	assert.Contains(t, f.store.EventTypes(), usecase.EventMFASuccess)
}

func TestCompleteMFA_RejectsWrongTokens(t *testing.T) {
	f := newFixture(t)
	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)
	_, full := f.loginPassword(t, "alice@example.com", alicePassword, false)
	require.NoError(t, f.codes.Issue(context.Background(), f.alice.ID,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS, Verified: true}, 5*time.Minute))
	code := domain.OneTimeCodeCredential{Code: "123456"}

	tests := []struct {
		name      string
		token     string
		sessionID string
	}{
		{"full access token", full.AccessToken, res.MFA.SessionID},
		{"refresh token", full.RefreshToken, res.MFA.SessionID},
		{"session mismatch", pending.AccessToken, "some-other-session"},
		{"garbage", "not.a.token", res.MFA.SessionID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, tok, err := f.uc.CompleteMFA(context.Background(), tt.token, tt.sessionID, domain.FactorOTP, code, actx(t, true))
			require.NoError(t, err)
			assert.False(t, out.Authenticated)
			assert.Equal(t, usecase.ReasonInvalidMFAToken, out.FailureReason)
			assert.Nil(t, tok)
		})
	}

	// nothing above consumed the code
	_, ok := f.codes.Pending(f.alice.ID)
	assert.True(t, ok)
}

func TestCompleteMFA_RejectsFirstFactorAgain(t *testing.T) {
	f := newFixture(t)
	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)
	require.True(t, res.MFARequired())
	require.NoError(t, f.codes.Issue(context.Background(), f.alice.ID,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS, Verified: true}, 5*time.Minute))

	again, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorPassword,
		domain.PasswordCredential{Secret: alicePassword}, actx(t, true))
	require.NoError(t, err)
	assert.False(t, again.Authenticated)
	assert.Equal(t, usecase.ReasonFactorNotRequired, again.FailureReason)
	assert.Nil(t, tok)

	// the pending session still completes with the factor it asked for
	done, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS}, actx(t, true))
	require.NoError(t, err)
	assert.True(t, done.Authenticated)
	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenFullAccess, tok.Kind)
}

func TestCompleteMFA_RejectsFactorOutsideOutstandingSet(t *testing.T) {
	f := newFixture(t, withSocial)
	require.NoError(t, f.store.SaveCredential(context.Background(), f.alice.ID,
		domain.SocialCredential{Provider: "google", Subject: "1059", Verified: true}))

	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)
	out, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorSocial,
		domain.SocialCredential{Provider: "google", Subject: "1059", IDToken: "id-token"}, actx(t, true))
	require.NoError(t, err)
	assert.False(t, out.Authenticated)
	assert.Equal(t, usecase.ReasonFactorNotRequired, out.FailureReason)
	assert.Nil(t, tok)
	assert.Contains(t, f.store.EventTypes(), usecase.EventMFAFailed)
}

func TestCompleteMFA_PasskeySatisfiesOnItsOwn(t *testing.T) {
	f := newFixture(t)
	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)

	presented := domain.PasskeyCredential{CredentialID: []byte("cred-1"), Assertion: []byte(`{}`)}
	done, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorPasskey, presented, actx(t, true))
	require.NoError(t, err)
	assert.True(t, done.Authenticated)
	assert.Equal(t, domain.TrustHigh, done.TrustLevel)
	assert.Equal(t, domain.NewFactorSet(domain.FactorPassword, domain.FactorPasskey), done.Completed)
	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenFullAccess, tok.Kind)
}

func TestCompleteMFA_StepsThroughEveryRequiredFactor(t *testing.T) {
	f := newFixture(t, withSocial, func(d *usecase.Deps) {
		d.Policy.RequiredFactors = domain.NewFactorSet(domain.FactorOTP, domain.FactorSocial)
	})
	require.NoError(t, f.store.SaveCredential(context.Background(), f.alice.ID,
		domain.SocialCredential{Provider: "google", Subject: "1059", Verified: true}))
	require.NoError(t, f.codes.Issue(context.Background(), f.alice.ID,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS, Verified: true}, 5*time.Minute))

	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)
	require.True(t, res.MFARequired())

	half, next, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP,
		domain.OneTimeCodeCredential{Code: "123456", Channel: domain.ChannelSMS}, actx(t, true))
	require.NoError(t, err)
	assert.False(t, half.Authenticated)
	require.True(t, half.MFARequired())
	assert.Equal(t, domain.NewFactorSet(domain.FactorSocial), half.MFA.Remaining())
	assert.Equal(t, domain.TrustMedium, half.TrustLevel)
	require.NotNil(t, next)
	assert.Equal(t, domain.TokenMFAPending, next.Kind)
	assert.Empty(t, next.RefreshToken)
	assert.Equal(t, res.MFA.SessionID, next.MFASessionID)

	done, tok, err := f.uc.CompleteMFA(context.Background(), next.AccessToken, next.MFASessionID, domain.FactorSocial,
		domain.SocialCredential{Provider: "google", Subject: "1059", IDToken: "id-token"}, actx(t, true))
	require.NoError(t, err)
	assert.True(t, done.Authenticated)
	assert.Equal(t, domain.TrustMedium, done.TrustLevel)
	assert.Equal(t, domain.NewFactorSet(domain.FactorPassword, domain.FactorOTP, domain.FactorSocial), done.Completed)
	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenFullAccess, tok.Kind)
}

func TestAuthenticate_SocialWithoutProviderVerifierFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveCredential(context.Background(), f.alice.ID,
		domain.SocialCredential{Provider: "google", Subject: "1059", Verified: true}))

	res, tok, err := f.uc.Authenticate(context.Background(), "alice@example.com", domain.CredentialSocial,
		domain.SocialCredential{Provider: "google", Subject: "1059", IDToken: "not-a-jwt"}, actx(t, false))
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Equal(t, verification.ReasonUnavailable, res.FailureReason)
	assert.Nil(t, tok)
}

func TestAuthenticate_PasskeyYieldsHighWithoutStepUp(t *testing.T) {
	f := newFixture(t)

	presented := domain.PasskeyCredential{CredentialID: []byte("cred-1"), Assertion: []byte(`{"id":"cred-1"}`)}
	res, tok, err := f.uc.Authenticate(context.Background(), "alice@example.com", domain.CredentialPasskey, presented, actx(t, true))
	require.NoError(t, err)
	assert.True(t, res.Authenticated)
	assert.Equal(t, domain.TrustHigh, res.TrustLevel)
	assert.False(t, res.MFARequired())
	require.NotNil(t, tok)
	assert.Equal(t, domain.TokenFullAccess, tok.Kind)
	assert.Equal(t, 4*baseTTL, tok.AccessExpiresAt.Sub(f.now))
}

func TestAuthenticate_NoEnumerationLeak(t *testing.T) {
	f := newFixture(t)

	unknown, unknownTok := f.loginPassword(t, "nonexistent@x.com", alicePassword, false)
	wrong, wrongTok := f.loginPassword(t, "alice@example.com", "wrong-password", false)

	f.store.SetActive(f.alice.ID, false)
	inactive, inactiveTok := f.loginPassword(t, "alice@example.com", alicePassword, false)

	for _, r := range []domain.AuthResult{unknown, wrong, inactive} {
		assert.False(t, r.Authenticated)
		assert.Equal(t, domain.TrustNone, r.TrustLevel)
		assert.Nil(t, r.MFA)
		assert.Zero(t, r.Completed.Len())
		assert.NotEmpty(t, r.FailureReason)
	}
	assert.Nil(t, unknownTok)
	assert.Nil(t, wrongTok)
	assert.Nil(t, inactiveTok)
}

func TestAuthenticate_NotProvisionedAndMismatchedTypes(t *testing.T) {
	f := newFixture(t)

	res, tok, err := f.uc.Authenticate(context.Background(), "alice@example.com", domain.CredentialSocial,
		domain.SocialCredential{Provider: "google", Subject: "sub"}, actx(t, false))
	require.NoError(t, err)
	assert.False(t, res.Authenticated)
	assert.Nil(t, tok)

	res, tok, err = f.uc.Authenticate(context.Background(), "alice@example.com", domain.CredentialPasskey,
		domain.PasswordCredential{Secret: alicePassword}, actx(t, false))
	require.NoError(t, err)
	assert.Equal(t, verification.ReasonUnsupported, res.FailureReason)
	assert.Nil(t, tok)
}

func TestAuthenticate_StoreOutageIsAnError(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection refused")

	_, tok, err := f.uc.Authenticate(context.Background(), "alice@example.com", domain.CredentialPassword,
		domain.PasswordCredential{Secret: alicePassword}, actx(t, false))
	assert.Error(t, err)
	assert.Nil(t, tok)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	p, err := f.uc.Register(context.Background(), " Bob@Example.com", "hunter2hunter2", "")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", p.Identifier)
	assert.Equal(t, domain.PrincipalUser, p.Type)
	assert.True(t, p.Active)

	res, tok := f.loginPassword(t, "bob@example.com", "hunter2hunter2", false)
	assert.True(t, res.Authenticated)
	assert.NotNil(t, tok)

	_, err = f.uc.Register(context.Background(), "bob@example.com", "hunter2hunter2", domain.PrincipalUser)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = f.uc.Register(context.Background(), "carol@example.com", "short", domain.PrincipalUser)
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.uc.Register(context.Background(), "carol@example.com", "long-enough-pass", "ROBOT")
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	presented := domain.PasskeyCredential{CredentialID: []byte("cred-1"), Assertion: []byte(`{}`)}
	_, tok, err := f.uc.Authenticate(context.Background(), "alice@example.com", domain.CredentialPasskey, presented, actx(t, false))
	require.NoError(t, err)

	refreshed, err := f.uc.Refresh(context.Background(), tok.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, domain.TrustHigh, refreshed.TrustLevel)
	assert.Equal(t, domain.TokenFullAccess, refreshed.Kind)

	_, err = f.uc.Refresh(context.Background(), tok.AccessToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	f.store.SetActive(f.alice.ID, false)
	_, err = f.uc.Refresh(context.Background(), tok.RefreshToken)
	assert.ErrorIs(t, err, usecase.ErrInvalidCredentials)
}

func TestSendOTP_DeliversUsableCode(t *testing.T) {
	f := newFixture(t)
	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, true)

	require.NoError(t, f.uc.SendOTP(context.Background(), pending.AccessToken, domain.ChannelEmail))
	sent, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, f.alice.ID, sent.PrincipalID)
	assert.Len(t, sent.Code, 6)

	done, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP,
		domain.OneTimeCodeCredential{Code: sent.Code, Channel: domain.ChannelEmail}, actx(t, true))
	require.NoError(t, err)
	assert.True(t, done.Authenticated)
	assert.NotNil(t, tok)

	assert.ErrorIs(t, f.uc.SendOTP(context.Background(), pending.AccessToken, domain.ChannelApp), usecase.ErrInvalidInput)

	_, full := f.loginPassword(t, "alice@example.com", alicePassword, false)
	assert.ErrorIs(t, f.uc.SendOTP(context.Background(), full.AccessToken, domain.ChannelSMS), token.ErrInvalidToken)
}

func TestTOTPEnrolment_EnablesStepUp(t *testing.T) {
	f := newFixture(t)
	_, full := f.loginPassword(t, "alice@example.com", alicePassword, false)
	claims, err := f.tokens.VerifyAccess(full.AccessToken, domain.TokenFullAccess)
	require.NoError(t, err)

	key, err := f.uc.EnrollTOTP(context.Background(), claims)
	require.NoError(t, err)
	assert.NotEmpty(t, key.Secret)
	assert.Contains(t, key.URL, "otpauth://")

	// an unconfirmed secret is not yet a usable factor
	res, _ := f.loginPassword(t, "alice@example.com", alicePassword, false)
	assert.False(t, res.MFARequired())

	assert.ErrorIs(t, f.uc.ConfirmTOTP(context.Background(), claims, "000000", actx(t, false)), usecase.ErrInvalidCredentials)

	code, err := totp.GenerateCode(key.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.uc.ConfirmTOTP(context.Background(), claims, code, actx(t, false)))

	// a confirmed secret cannot be overwritten by a new enrolment
	_, err = f.uc.EnrollTOTP(context.Background(), claims)
	assert.ErrorIs(t, err, usecase.ErrAlreadyEnrolled)

	res, pending := f.loginPassword(t, "alice@example.com", alicePassword, false)
	require.True(t, res.MFARequired())

	code, err = totp.GenerateCode(key.Secret, time.Now())
	require.NoError(t, err)
	done, tok, err := f.uc.CompleteMFA(context.Background(), pending.AccessToken, res.MFA.SessionID, domain.FactorOTP,
		domain.OneTimeCodeCredential{Code: code, Channel: domain.ChannelApp}, actx(t, false))
	require.NoError(t, err)
	assert.True(t, done.Authenticated)
	assert.Equal(t, domain.TrustMedium, done.TrustLevel)
	assert.NotNil(t, tok)
}

func TestBeginPasskey_Unconfigured(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.BeginPasskey(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, usecase.ErrUnavailable)
}

func TestAuditNeverStoresRequestContext(t *testing.T) {
	f := newFixture(t)
	f.loginPassword(t, "alice@example.com", alicePassword, true)
	f.loginPassword(t, "alice@example.com", "nope", false)

	for _, e := range f.store.Events() {
		for _, v := range e.Metadata {
			assert.NotEqual(t, "203.0.113.7", v)
			assert.NotEqual(t, "Mozilla/5.0", v)
		}
	}
}
