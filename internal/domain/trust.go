package domain

import "fmt"

// TrustLevel is an ordered classification of how strongly an identity was proven.
// The zero value means no trust was established.
type TrustLevel int

const (
	TrustNone TrustLevel = iota
	TrustLow
	TrustMedium
	TrustHigh
)

// Rank is the numeric value carried in the auth_level_value claim.
func (l TrustLevel) Rank() int { return int(l) }

func (l TrustLevel) IsHigherOrEqual(other TrustLevel) bool { return l >= other }
func (l TrustLevel) IsLowerOrEqual(other TrustLevel) bool  { return l <= other }

func (l TrustLevel) String() string {
	switch l {
	case TrustLow:
		return "LOW"
	case TrustMedium:
		return "MEDIUM"
	case TrustHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

// ParseTrustLevel is the inverse of String for established levels.
func ParseTrustLevel(s string) (TrustLevel, error) {
	switch s {
	case "LOW":
		return TrustLow, nil
	case "MEDIUM":
		return TrustMedium, nil
	case "HIGH":
		return TrustHigh, nil
	}
	return TrustNone, fmt.Errorf("unknown trust level %q", s)
}

// MaxTrust returns the stronger of two levels.
func MaxTrust(a, b TrustLevel) TrustLevel {
	if a >= b {
		return a
	}
	return b
}
