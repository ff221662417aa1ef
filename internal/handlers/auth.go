package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/auth"
	"sentisense/internal/respond"
)

type AuthHandler struct {
	svc    *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Register godoc
// @Summary Register a new account
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if _, err := h.svc.Register(r.Context(), strings.TrimSpace(req.Username), normalizeEmail(req.Email), req.Password); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, "User registered successfully")
}

// Token godoc
// @Summary Log in with username or email
// @Router /auth/token [post]
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	session, err := h.svc.Login(r.Context(), strings.TrimSpace(req.Credential), req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, toTokenResponse(session, ""))
}

// CheckUser answers 200 either way; a taken name is reported in the
// "error" field rather than as a failure status.
func (h *AuthHandler) CheckUser(w http.ResponseWriter, r *http.Request) {
	var req checkUserRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	err := h.svc.CheckUser(r.Context(), strings.TrimSpace(req.Username), normalizeEmail(req.Email), req.Token)
	switch {
	case err == nil:
		respond.Message(w, "Username and email are available")
	case apperr.Is(err, apperr.KindConflict):
		respond.OK(w, map[string]string{"error": apperr.Detail(err)})
	default:
		respond.Error(w, r, h.logger, err)
	}
}

func (h *AuthHandler) GoogleSignup(w http.ResponseWriter, r *http.Request) {
	var req googleSignupRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	session, err := h.svc.GoogleSignup(r.Context(), req.Token, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, toTokenResponse(session, "User signed up successfully"))
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	session, err := h.svc.GoogleLogin(r.Context(), req.Token)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, toTokenResponse(session, ""))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), normalizeEmail(req.Email)); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, "Password reset link sent to your email.")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, "Password has been reset successfully.")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
