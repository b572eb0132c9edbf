package handler

import (
	"net/http"

	"github.com/go-signup-verify/internal/application/auth"
	"github.com/go-signup-verify/internal/domain"
	"github.com/go-signup-verify/internal/transport/http/middleware"
)

// AuthHandler serves the signup, verification and login endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body")
		return
	}
	res, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Verification code sent to your email", SignupData{VerificationToken: res.VerificationToken})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body")
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req); err != nil {
		respondError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Email verified successfully", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body")
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if res.NeedsVerification {
		writeData(w, http.StatusOK, "Email not verified, a new code was sent", LoginData{
			NeedsVerification: true,
			VerificationToken: res.VerificationToken,
		})
		return
	}
	writeData(w, http.StatusOK, "Logged in", LoginData{AccessToken: res.AccessToken, User: res.User})
}

// Me returns the user behind the access token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.KindInvalidToken, "unauthorized")
		return
	}
	u, err := h.svc.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "ok", u)
}
