package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
	"github.com/FilipeAphrody/sentinel-trust/internal/usecase"
)

var errBadCredential = errors.New("invalid credential payload")

// AuthHandler represents the HTTP delivery layer for authentication.
type AuthHandler struct {
	usecase *usecase.AuthUsecase
	logger  *slog.Logger
}

// NewAuthHandler registers the authentication routes to the provided echo group.
func NewAuthHandler(e *echo.Group, u *usecase.AuthUsecase, tokens *token.Service, logger *slog.Logger) {
	handler := &AuthHandler{usecase: u, logger: handlerLogger(logger)}

	e.POST("/register", handler.Register)
	e.POST("/login", handler.Login)
	e.POST("/passkey/begin", handler.BeginPasskey)
	e.POST("/token/refresh", handler.Refresh)
	e.GET("/me", handler.Me, RequireToken(tokens, domain.TokenFullAccess))
}

type registerRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Type       string `json:"type"`
}

// credentialRequest carries whichever presented credential credential_type names.
type credentialRequest struct {
	CredentialType string `json:"credential_type"`

	Password string `json:"password,omitempty"`

	Provider string `json:"provider,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Email    string `json:"email,omitempty"`
	IDToken  string `json:"id_token,omitempty"`

	Challenge string          `json:"challenge,omitempty"`
	Assertion json.RawMessage `json:"assertion,omitempty"`

	Code    string `json:"code,omitempty"`
	Channel string `json:"channel,omitempty"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	credentialRequest
}

type passkeyBeginRequest struct {
	Identifier string `json:"identifier"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is returned once a login reaches full access.
type tokenResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	TokenType    domain.TokenKind    `json:"token_type"`
	ExpiresIn    int64               `json:"expires_in"`
	TrustLevel   string              `json:"trust_level"`
	Factors      []domain.FactorType `json:"factors,omitempty"`
}

// mfaRequiredResponse hands back the pending token and what is still missing.
type mfaRequiredResponse struct {
	Message         string              `json:"message"`
	MFAToken        string              `json:"mfa_token"`
	MFASessionID    string              `json:"mfa_session_id"`
	ExpiresIn       int64               `json:"expires_in"`
	TrustLevel      string              `json:"trust_level"`
	RequiredFactors []domain.FactorType `json:"required_factors"`
}

type meResponse struct {
	*domain.Principal
	TrustLevel string           `json:"trust_level"`
	TokenType  domain.TokenKind `json:"token_type"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// Register creates a principal with a password credential.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	p, err := h.usecase.Register(c.Request().Context(), req.Identifier, req.Password, domain.PrincipalType(req.Type))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, domain.ErrAlreadyExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "identifier already registered"})
		}
		return h.internalError(c, "register", err)
	}

	return c.JSON(http.StatusCreated, p)
}

// Login verifies the first factor. It answers 200 with a token pair, or 202
// with an MFA_PENDING token when step-up is required.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	credType, presented, err := req.credential()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	actx, err := authContext(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	result, tok, err := h.usecase.Authenticate(c.Request().Context(), req.Identifier, credType, presented, actx)
	if err != nil {
		return h.internalError(c, "login", err)
	}

	return writeResult(c, result, tok)
}

// BeginPasskey returns WebAuthn assertion options for the browser.
func (h *AuthHandler) BeginPasskey(c echo.Context) error {
	var req passkeyBeginRequest
	if err := c.Bind(&req); err != nil || req.Identifier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	options, err := h.usecase.BeginPasskey(c.Request().Context(), req.Identifier)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnavailable):
			return c.JSON(http.StatusNotImplemented, echo.Map{"error": "passkeys are not enabled"})
		case errors.Is(err, usecase.ErrInvalidCredentials):
			return unauthorized(c)
		}
		return h.internalError(c, "passkey begin", err)
	}

	return c.JSON(http.StatusOK, options)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	tok, err := h.usecase.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if isAuthError(err) {
			return unauthorized(c)
		}
		return h.internalError(c, "refresh", err)
	}

	return c.JSON(http.StatusOK, newTokenResponse(tok, nil))
}

// Me describes the principal behind a full-access token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return unauthorized(c)
	}

	p, err := h.usecase.Principal(c.Request().Context(), claims)
	if err != nil {
		if isAuthError(err) {
			return unauthorized(c)
		}
		return h.internalError(c, "me", err)
	}

	return c.JSON(http.StatusOK, meResponse{
		Principal:  p,
		TrustLevel: claims.TrustLevel().String(),
		TokenType:  claims.Kind(),
		ExpiresAt:  claims.ExpiresAt(),
	})
}

func (h *AuthHandler) internalError(c echo.Context, op string, err error) error {
	return internalError(c, h.logger, op, err)
}

// credential maps the request body onto the presented credential variant.
func (r credentialRequest) credential() (domain.CredentialType, domain.Credential, error) {
	credType, ok := domain.ParseCredentialType(r.CredentialType)
	if !ok {
		return "", nil, fmt.Errorf("%w: unsupported credential_type %q", errBadCredential, r.CredentialType)
	}

	switch credType {
	case domain.CredentialPassword:
		if r.Password == "" {
			return "", nil, fmt.Errorf("%w: password is required", errBadCredential)
		}
		return credType, domain.PasswordCredential{Secret: r.Password}, nil

	case domain.CredentialSocial:
		if r.Provider == "" || r.Subject == "" || r.IDToken == "" {
			return "", nil, fmt.Errorf("%w: provider, subject and id_token are required", errBadCredential)
		}
		return credType, domain.SocialCredential{
			Provider: r.Provider,
			Subject:  r.Subject,
			Email:    r.Email,
			IDToken:  r.IDToken,
		}, nil

	case domain.CredentialPasskey:
		if r.Challenge == "" || len(r.Assertion) == 0 {
			return "", nil, fmt.Errorf("%w: challenge and assertion are required", errBadCredential)
		}
		return credType, domain.PasskeyCredential{Challenge: r.Challenge, Assertion: r.Assertion}, nil

	default:
		channel := domain.DeliveryChannel(r.Channel)
		switch channel {
		case domain.ChannelSMS, domain.ChannelEmail, domain.ChannelApp:
		default:
			return "", nil, fmt.Errorf("%w: channel must be SMS, EMAIL or APP", errBadCredential)
		}
		if r.Code == "" {
			return "", nil, fmt.Errorf("%w: code is required", errBadCredential)
		}
		return credType, domain.OneTimeCodeCredential{Code: r.Code, Channel: channel}, nil
	}
}

// writeResult renders an AuthResult. Every rejection looks the same so the
// response never reveals whether the identifier exists.
func writeResult(c echo.Context, result domain.AuthResult, tok *domain.Token) error {
	if tok == nil {
		return unauthorized(c)
	}

	if result.MFARequired() {
		return c.JSON(http.StatusAccepted, mfaRequiredResponse{
			Message:         "mfa_required",
			MFAToken:        tok.AccessToken,
			MFASessionID:    tok.MFASessionID,
			ExpiresIn:       tok.ExpiresIn(time.Now()),
			TrustLevel:      tok.TrustLevel.String(),
			RequiredFactors: result.MFA.Remaining().Sorted(),
		})
	}

	if !result.Authenticated {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, newTokenResponse(tok, result.Completed))
}

func newTokenResponse(tok *domain.Token, factors domain.FactorSet) tokenResponse {
	return tokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Kind,
		ExpiresIn:    tok.ExpiresIn(time.Now()),
		TrustLevel:   tok.TrustLevel.String(),
		Factors:      factors.Sorted(),
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, token.ErrInvalidToken) || errors.Is(err, usecase.ErrInvalidCredentials)
}

func handlerLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "http")
}

// internalError logs the cause and answers with a generic 500.
func internalError(c echo.Context, logger *slog.Logger, op string, err error) error {
	logger.Error("request failed", "op", op, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
