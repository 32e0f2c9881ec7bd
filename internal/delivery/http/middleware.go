package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
)

const (
	claimsKey = "claims"

	// HeaderChannel names the client surface (web, mobile, api) for step-up rules.
	HeaderChannel = "X-Auth-Channel"
	// HeaderRiskSignal is set by an upstream risk engine; "suspicious" forces step-up.
	HeaderRiskSignal = "X-Risk-Signal"

	defaultChannel = "web"
)

// RequireToken validates the bearer token and only admits tokens of kind.
// Verified claims are stored on the echo context for the handler.
func RequireToken(tokens *token.Service, kind domain.TokenKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
			}

			claims, err := tokens.VerifyAccess(raw, kind)
			if err != nil {
				return unauthorized(c)
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom returns the claims RequireToken stored on the context.
func ClaimsFrom(c echo.Context) (*token.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*token.Claims)
	return claims, ok
}

// bearerToken expects the format "Bearer <token>".
func bearerToken(c echo.Context) (string, bool) {
	scheme, raw, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return "", false
	}
	return raw, true
}

// authContext builds the per-attempt policy input from the request.
func authContext(c echo.Context) (domain.AuthenticationContext, error) {
	req := c.Request()

	channel := strings.ToLower(strings.TrimSpace(req.Header.Get(HeaderChannel)))
	if channel == "" {
		channel = defaultChannel
	}
	suspicious := strings.EqualFold(req.Header.Get(HeaderRiskSignal), "suspicious")

	return domain.NewAuthenticationContext(c.RealIP(), req.UserAgent(), channel, time.Now().UTC(), suspicious)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
}
