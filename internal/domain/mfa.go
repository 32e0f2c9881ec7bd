package domain

// MFARequirement describes whether an additional factor is outstanding for a login.
type MFARequirement struct {
	Required         bool
	RequiredFactors  FactorSet
	CompletedFactors FactorSet
	SessionID        string // Correlates the pending-MFA token with its completion
}

// NoMFA is the requirement returned when no step-up is needed.
func NoMFA(sessionID string) MFARequirement {
	return MFARequirement{
		RequiredFactors:  NewFactorSet(),
		CompletedFactors: NewFactorSet(),
		SessionID:        sessionID,
	}
}

// RequireMFA names the outstanding factors for a session.
func RequireMFA(sessionID string, required, completed FactorSet) MFARequirement {
	return MFARequirement{
		Required:         true,
		RequiredFactors:  required.Union(nil),
		CompletedFactors: completed.Union(nil),
		SessionID:        sessionID,
	}
}

// IsComplete reports whether completed ⊇ required.
func (m MFARequirement) IsComplete() bool {
	return m.CompletedFactors.ContainsAll(m.RequiredFactors)
}

// Remaining returns required − completed.
func (m MFARequirement) Remaining() FactorSet {
	return m.RequiredFactors.Minus(m.CompletedFactors)
}
