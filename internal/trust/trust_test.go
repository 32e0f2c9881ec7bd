package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

var levels = []domain.TrustLevel{domain.TrustLow, domain.TrustMedium, domain.TrustHigh}

func ok(level domain.TrustLevel, factors ...domain.FactorType) domain.AuthResult {
	return domain.Success(level, domain.NewFactorSet(factors...))
}

func TestCombine_MonotonicTrust(t *testing.T) {
	for _, a := range levels {
		for _, b := range levels {
			res := Combine(ok(a, domain.FactorPassword), ok(b, domain.FactorOTP))
			require.True(t, res.Authenticated)
			assert.True(t, res.TrustLevel.IsHigherOrEqual(a), "%s+%s", a, b)
			assert.True(t, res.TrustLevel.IsHigherOrEqual(b), "%s+%s", a, b)
			assert.Equal(t, domain.MaxTrust(a, b), res.TrustLevel)
		}
	}
}

func TestCombine_UnionsFactors(t *testing.T) {
	res := Combine(ok(domain.TrustLow, domain.FactorPassword), ok(domain.TrustMedium, domain.FactorOTP))
	assert.Equal(t, domain.TrustMedium, res.TrustLevel)
	assert.Equal(t, []domain.FactorType{domain.FactorOTP, domain.FactorPassword}, res.Completed.Sorted())
}

func TestCombine_AnyFailureFails(t *testing.T) {
	failed := domain.Failure("Invalid code")

	res := Combine(ok(domain.TrustHigh, domain.FactorPasskey), failed)
	assert.False(t, res.Authenticated)
	assert.Equal(t, domain.TrustNone, res.TrustLevel)
	assert.Equal(t, "Invalid code", res.FailureReason)

	res = Combine(failed, ok(domain.TrustLow))
	assert.False(t, res.Authenticated)

	partial := domain.PartialSuccess(domain.TrustLow, domain.NewFactorSet(domain.FactorPassword),
		domain.RequireMFA("s", domain.NewFactorSet(domain.FactorOTP), domain.NewFactorSet()))
	res = Combine(partial, ok(domain.TrustMedium, domain.FactorOTP))
	assert.False(t, res.Authenticated)
	assert.NotEmpty(t, res.FailureReason)
}

func TestUpgrade(t *testing.T) {
	assert.Equal(t, domain.TrustMedium, Upgrade(domain.TrustLow, ok(domain.TrustMedium)))
	assert.Equal(t, domain.TrustHigh, Upgrade(domain.TrustHigh, ok(domain.TrustMedium)))
	assert.Equal(t, domain.TrustMedium, Upgrade(domain.TrustMedium, ok(domain.TrustMedium)))
	assert.Equal(t, domain.TrustLow, Upgrade(domain.TrustLow, domain.Failure("x")))
}

func newContext(t *testing.T, channel string, suspicious bool) domain.AuthenticationContext {
	t.Helper()
	actx, err := domain.NewAuthenticationContext("10.0.0.1", "test-agent", channel, time.Now(), suspicious)
	require.NoError(t, err)
	return actx
}

func TestCheckMFARequirement(t *testing.T) {
	p := DefaultPolicy()

	req := p.CheckMFARequirement(newContext(t, "WEB", false), "s-1")
	assert.False(t, req.Required)
	assert.Zero(t, req.RequiredFactors.Len())
	assert.Zero(t, req.CompletedFactors.Len())
	assert.Equal(t, "s-1", req.SessionID)

	req = p.CheckMFARequirement(newContext(t, "WEB", true), "s-2")
	assert.True(t, req.Required)
	assert.Equal(t, []domain.FactorType{domain.FactorOTP}, req.RequiredFactors.Sorted())
	assert.Equal(t, "s-2", req.SessionID)

	p.AlwaysRequireChannels = []string{"api"}
	req = p.CheckMFARequirement(newContext(t, "API", false), "s-3")
	assert.True(t, req.Required)
}

func TestEvaluate(t *testing.T) {
	user := &domain.Principal{ID: "u", Type: domain.PrincipalUser, Active: true}
	mfaUser := &domain.Principal{ID: "m", Type: domain.PrincipalUser, Active: true, MFAEnabled: true}
	svc := &domain.Principal{ID: "s", Type: domain.PrincipalServiceAccount, Active: true}
	password := domain.NewFactorSet(domain.FactorPassword)

	strict := DefaultPolicy()
	strict.RequireForServiceAccounts = true

	tests := []struct {
		name      string
		policy    StepUpPolicy
		principal *domain.Principal
		actx      domain.AuthenticationContext
		achieved  domain.TrustLevel
		completed domain.FactorSet
		required  bool
	}{
		{"plain login", DefaultPolicy(), user, newContext(t, "WEB", false), domain.TrustLow, password, false},
		{"suspicious login", DefaultPolicy(), user, newContext(t, "WEB", true), domain.TrustLow, password, true},
		{"mfa enabled principal", DefaultPolicy(), mfaUser, newContext(t, "WEB", false), domain.TrustLow, password, true},
		{"service account default", DefaultPolicy(), svc, newContext(t, "API", false), domain.TrustLow, password, false},
		{"service account strict", strict, svc, newContext(t, "API", false), domain.TrustLow, password, true},
		{"passkey never steps up", DefaultPolicy(), mfaUser, newContext(t, "WEB", true), domain.TrustHigh, domain.NewFactorSet(domain.FactorPasskey), false},
		{"otp already completed", DefaultPolicy(), mfaUser, newContext(t, "WEB", true), domain.TrustMedium, domain.NewFactorSet(domain.FactorOTP), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.policy.Evaluate(tt.principal, tt.actx, tt.achieved, tt.completed, "session")
			assert.Equal(t, tt.required, req.Required)
			assert.Equal(t, "session", req.SessionID)
			if tt.required {
				assert.False(t, req.IsComplete())
				assert.True(t, req.Remaining().Has(domain.FactorOTP))
				assert.Equal(t, tt.completed.Sorted(), req.CompletedFactors.Sorted())
			} else {
				assert.Zero(t, req.RequiredFactors.Len())
			}
		})
	}
}
