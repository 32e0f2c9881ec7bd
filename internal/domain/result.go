package domain

// AuthResult is the outcome of one verification step.
type AuthResult struct {
	Authenticated bool
	TrustLevel    TrustLevel // TrustNone on failure
	Completed     FactorSet
	MFA           *MFARequirement
	FailureReason string
}

// Success is a fully authenticated outcome.
func Success(level TrustLevel, completed FactorSet) AuthResult {
	return AuthResult{
		Authenticated: true,
		TrustLevel:    level,
		Completed:     completed.Union(nil),
	}
}

// SuccessWithMFA is an authenticated outcome that also reports the MFA state.
func SuccessWithMFA(level TrustLevel, completed FactorSet, mfa MFARequirement) AuthResult {
	r := Success(level, completed)
	r.MFA = &mfa
	return r
}

// PartialSuccess records progress while withholding authentication until the
// outstanding factors are completed.
func PartialSuccess(level TrustLevel, completed FactorSet, mfa MFARequirement) AuthResult {
	return AuthResult{
		TrustLevel: level,
		Completed:  completed.Union(nil),
		MFA:        &mfa,
	}
}

// Failure is a business-level rejection.
func Failure(reason string) AuthResult {
	return AuthResult{
		Completed:     NewFactorSet(),
		FailureReason: reason,
	}
}

// MFARequired reports whether the result is waiting on a second factor.
func (r AuthResult) MFARequired() bool {
	return r.MFA != nil && r.MFA.Required
}
