// Package trust merges verification outcomes and decides when a session has
// to step up with another factor.
package trust

import "github.com/FilipeAphrody/sentinel-trust/internal/domain"

const reasonIncomplete = "Authentication incomplete"

// Combine merges two verification outcomes. Trust is the strongest single
// factor achieved, never a sum or average of factors.
func Combine(first, second domain.AuthResult) domain.AuthResult {
	if !first.Authenticated || !second.Authenticated {
		reason := first.FailureReason
		if reason == "" {
			reason = second.FailureReason
		}
		if reason == "" {
			reason = reasonIncomplete
		}
		return domain.Failure(reason)
	}

	return domain.Success(
		domain.MaxTrust(first.TrustLevel, second.TrustLevel),
		first.Completed.Union(second.Completed),
	)
}

// Upgrade returns the level of additional when it is strictly higher than
// current and current otherwise. Unauthenticated outcomes never raise trust.
func Upgrade(current domain.TrustLevel, additional domain.AuthResult) domain.TrustLevel {
	if !additional.Authenticated {
		return current
	}
	if additional.TrustLevel > current {
		return additional.TrustLevel
	}
	return current
}
