package trust

import (
	"strings"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
)

// StepUpPolicy decides whether an otherwise successful verification must be
// followed by another factor. It is read-only after construction.
type StepUpPolicy struct {
	// SatisfiedAt is the level at or above which no step-up is ever requested.
	SatisfiedAt domain.TrustLevel

	// AlwaysRequireChannels lists channels (case-insensitive) that always step up.
	AlwaysRequireChannels []string

	RequireForServiceAccounts bool

	// RequiredFactors are the factors demanded on step-up.
	RequiredFactors domain.FactorSet
}

// DefaultPolicy steps up suspicious attempts and MFA-enabled principals until
// they reach HIGH trust.
func DefaultPolicy() StepUpPolicy {
	return StepUpPolicy{
		SatisfiedAt:     domain.TrustHigh,
		RequiredFactors: domain.NewFactorSet(domain.FactorOTP),
	}
}

// CheckMFARequirement looks only at the attempt context.
func (p StepUpPolicy) CheckMFARequirement(actx domain.AuthenticationContext, sessionID string) domain.MFARequirement {
	if p.contextRequiresMFA(actx) {
		return domain.RequireMFA(sessionID, p.requiredFactors(), domain.NewFactorSet())
	}
	return domain.NoMFA(sessionID)
}

// Evaluate adds principal-level rules to CheckMFARequirement and accounts for
// the factors the attempt already completed.
func (p StepUpPolicy) Evaluate(principal *domain.Principal, actx domain.AuthenticationContext, achieved domain.TrustLevel, completed domain.FactorSet, sessionID string) domain.MFARequirement {
	if p.Satisfies(achieved) {
		return domain.NoMFA(sessionID)
	}

	required := p.contextRequiresMFA(actx)
	if principal != nil {
		if principal.MFAEnabled {
			required = true
		}
		if principal.Type == domain.PrincipalServiceAccount && p.RequireForServiceAccounts {
			required = true
		}
	}
	if !required {
		return domain.NoMFA(sessionID)
	}

	req := domain.RequireMFA(sessionID, p.requiredFactors(), completed)
	if req.IsComplete() {
		return domain.NoMFA(sessionID)
	}
	return req
}

// Satisfies reports whether level on its own ends any step-up.
func (p StepUpPolicy) Satisfies(level domain.TrustLevel) bool {
	return level.IsHigherOrEqual(p.satisfiedAt())
}

func (p StepUpPolicy) contextRequiresMFA(actx domain.AuthenticationContext) bool {
	if actx.Suspicious() {
		return true
	}
	for _, ch := range p.AlwaysRequireChannels {
		if strings.EqualFold(ch, actx.Channel()) {
			return true
		}
	}
	return false
}

func (p StepUpPolicy) satisfiedAt() domain.TrustLevel {
	if p.SatisfiedAt == domain.TrustNone {
		return domain.TrustHigh
	}
	return p.SatisfiedAt
}

func (p StepUpPolicy) requiredFactors() domain.FactorSet {
	if p.RequiredFactors.Len() == 0 {
		return domain.NewFactorSet(domain.FactorOTP)
	}
	return p.RequiredFactors
}
