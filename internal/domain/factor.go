package domain

import "sort"

// FactorType tags a completed or required authentication factor.
type FactorType string

const (
	FactorPassword   FactorType = FactorType(CredentialPassword)
	FactorSocial     FactorType = FactorType(CredentialSocial)
	FactorPasskey    FactorType = FactorType(CredentialPasskey)
	FactorOTP        FactorType = FactorType(CredentialOneTimeCode)
	FactorBackupCode FactorType = "BACKUP_CODE"
)

// FactorSet is a set of factor tags. Operations return new sets and never
// mutate their receiver.
type FactorSet map[FactorType]struct{}

// NewFactorSet builds a set from the given tags.
func NewFactorSet(factors ...FactorType) FactorSet {
	s := make(FactorSet, len(factors))
	for _, f := range factors {
		s[f] = struct{}{}
	}
	return s
}

// Valid reports whether f is one of the known factor tags.
func (f FactorType) Valid() bool {
	switch f {
	case FactorPassword, FactorSocial, FactorPasskey, FactorOTP, FactorBackupCode:
		return true
	}
	return false
}

func (s FactorSet) Has(f FactorType) bool {
	_, ok := s[f]
	return ok
}

func (s FactorSet) Len() int { return len(s) }

// Union returns s ∪ other.
func (s FactorSet) Union(other FactorSet) FactorSet {
	out := make(FactorSet, len(s)+len(other))
	for f := range s {
		out[f] = struct{}{}
	}
	for f := range other {
		out[f] = struct{}{}
	}
	return out
}

// Minus returns s − other.
func (s FactorSet) Minus(other FactorSet) FactorSet {
	out := make(FactorSet)
	for f := range s {
		if !other.Has(f) {
			out[f] = struct{}{}
		}
	}
	return out
}

// ContainsAll reports whether s ⊇ other.
func (s FactorSet) ContainsAll(other FactorSet) bool {
	for f := range other {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

// Sorted returns the tags in a stable order, for claims and JSON output.
func (s FactorSet) Sorted() []FactorType {
	out := make([]FactorType, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
