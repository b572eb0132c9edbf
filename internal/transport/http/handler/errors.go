package handler

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-signup-verify/internal/domain"
)

var statusByKind = map[string]int{
	domain.KindValidation:         http.StatusBadRequest,
	domain.KindDuplicateUser:      http.StatusBadRequest,
	domain.KindCodeExpired:        http.StatusBadRequest,
	domain.KindCodeMismatch:       http.StatusBadRequest,
	domain.KindInvalidToken:       http.StatusUnauthorized,
	domain.KindInvalidCredentials: http.StatusUnauthorized,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindAlreadyVerified:    http.StatusConflict,
	domain.KindEmailDispatch:      http.StatusBadGateway,
}

// publicMessages hides wrapped infrastructure detail from clients.
var publicMessages = map[string]string{
	domain.KindDuplicateUser:      "User already exists",
	domain.KindInvalidToken:       "Invalid or expired token",
	domain.KindCodeExpired:        "Verification code expired",
	domain.KindCodeMismatch:       "Invalid verification code",
	domain.KindAlreadyVerified:    "Email already verified",
	domain.KindNotFound:           "User not found",
	domain.KindEmailDispatch:      "Failed to send verification email",
	domain.KindInvalidCredentials: "Invalid email or password",
	domain.KindInternal:           "Internal server error",
}

// statusFor returns the HTTP status for err's kind; unknown errors are 500.
func statusFor(kind string) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// respondError maps err onto the envelope. Validation errors keep their
// message since it names the offending field.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.ErrorKind(err)
	status := statusFor(kind)
	msg := publicMessages[kind]
	if kind == domain.KindValidation {
		msg = err.Error()
	}
	reqID := chimiddleware.GetReqID(r.Context())
	switch {
	case kind == domain.KindEmailDispatch:
		slog.Warn("email dispatch failed", "path", r.URL.Path, "request_id", reqID, "err", err)
	case status >= http.StatusInternalServerError:
		slog.Error("request failed", "path", r.URL.Path, "kind", kind, "request_id", reqID, "err", err)
	}
	writeError(w, status, kind, msg)
}
