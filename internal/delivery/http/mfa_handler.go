package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/sentinel-trust/internal/domain"
	"github.com/FilipeAphrody/sentinel-trust/internal/token"
	"github.com/FilipeAphrody/sentinel-trust/internal/usecase"
)

// MFAHandler handles second-factor completion and TOTP enrolment.
type MFAHandler struct {
	usecase *usecase.AuthUsecase
	logger  *slog.Logger
}

// NewMFAHandler registers the MFA routes. Completion routes only admit
// MFA_PENDING tokens; enrolment routes only admit FULL_ACCESS tokens.
func NewMFAHandler(e *echo.Group, u *usecase.AuthUsecase, tokens *token.Service, logger *slog.Logger) {
	handler := &MFAHandler{usecase: u, logger: handlerLogger(logger)}

	pending := RequireToken(tokens, domain.TokenMFAPending)
	e.POST("/mfa/send", handler.Send, pending)
	e.POST("/mfa/verify", handler.Verify, pending)

	full := RequireToken(tokens, domain.TokenFullAccess)
	e.POST("/mfa/totp/setup", handler.Setup, full)
	e.POST("/mfa/totp/enable", handler.Enable, full)
}

type mfaSendRequest struct {
	Channel string `json:"channel"`
}

// mfaVerifyRequest names the factor being completed; it defaults to the
// credential type.
type mfaVerifyRequest struct {
	MFASessionID string `json:"mfa_session_id"`
	Factor       string `json:"factor,omitempty"`
	credentialRequest
}

// mfaSetupResponse returns the QR code URI to the frontend.
type mfaSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code_uri"`
}

// mfaEnableRequest is used to verify the first code before enabling MFA.
type mfaEnableRequest struct {
	Code string `json:"code"`
}

// Send delivers a fresh one-time code over SMS or email.
func (h *MFAHandler) Send(c echo.Context) error {
	var req mfaSendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	raw, _ := bearerToken(c)

	err := h.usecase.SendOTP(c.Request().Context(), raw, domain.DeliveryChannel(req.Channel))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case isAuthError(err):
			return unauthorized(c)
		}
		return internalError(c, h.logger, "mfa send", err)
	}

	return c.JSON(http.StatusAccepted, echo.Map{"message": "code_sent"})
}

// Verify completes the pending session with a second factor.
func (h *MFAHandler) Verify(c echo.Context) error {
	var req mfaVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.MFASessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "mfa_session_id is required"})
	}

	credType, presented, err := req.credential()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	factor := domain.FactorType(req.Factor)
	if factor == "" {
		factor = credType.Factor()
	}

	actx, err := authContext(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	raw, _ := bearerToken(c)

	result, tok, err := h.usecase.CompleteMFA(c.Request().Context(), raw, req.MFASessionID, factor, presented, actx)
	if err != nil {
		return internalError(c, h.logger, "mfa verify", err)
	}

	return writeResult(c, result, tok)
}

// Setup generates a new, unconfirmed TOTP secret for the caller.
func (h *MFAHandler) Setup(c echo.Context) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return unauthorized(c)
	}

	key, err := h.usecase.EnrollTOTP(c.Request().Context(), claims)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAlreadyEnrolled):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case isAuthError(err):
			return unauthorized(c)
		}
		return internalError(c, h.logger, "totp setup", err)
	}

	return c.JSON(http.StatusOK, mfaSetupResponse{Secret: key.Secret, QRCode: key.URL})
}

// Enable verifies the first code from the app and turns on MFA for the caller.
func (h *MFAHandler) Enable(c echo.Context) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req mfaEnableRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	actx, err := authContext(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.usecase.ConfirmTOTP(c.Request().Context(), claims, req.Code, actx); err != nil {
		if isAuthError(err) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
		}
		return internalError(c, h.logger, "totp enable", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "mfa_enabled_successfully"})
}
