package domain

import (
	"fmt"
	"time"
)

// AuthenticationContext is immutable per-attempt metadata used as policy input.
// It is never persisted.
type AuthenticationContext struct {
	ipAddress   string
	userAgent   string
	channel     string
	attemptedAt time.Time
	suspicious  bool
}

// NewAuthenticationContext validates that every required field is present.
func NewAuthenticationContext(ipAddress, userAgent, channel string, attemptedAt time.Time, suspicious bool) (AuthenticationContext, error) {
	switch {
	case ipAddress == "":
		return AuthenticationContext{}, fmt.Errorf("%w: ip address is required", ErrInvalidContext)
	case userAgent == "":
		return AuthenticationContext{}, fmt.Errorf("%w: user agent is required", ErrInvalidContext)
	case channel == "":
		return AuthenticationContext{}, fmt.Errorf("%w: channel is required", ErrInvalidContext)
	case attemptedAt.IsZero():
		return AuthenticationContext{}, fmt.Errorf("%w: attempt timestamp is required", ErrInvalidContext)
	}

	return AuthenticationContext{
		ipAddress:   ipAddress,
		userAgent:   userAgent,
		channel:     channel,
		attemptedAt: attemptedAt,
		suspicious:  suspicious,
	}, nil
}

func (c AuthenticationContext) IPAddress() string      { return c.ipAddress }
func (c AuthenticationContext) UserAgent() string      { return c.userAgent }
func (c AuthenticationContext) Channel() string        { return c.channel }
func (c AuthenticationContext) AttemptedAt() time.Time { return c.attemptedAt }
func (c AuthenticationContext) Suspicious() bool       { return c.suspicious }
