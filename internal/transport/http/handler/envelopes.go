package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-signup-verify/internal/domain"
)

// Envelope is the response wrapper used by every endpoint.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SignupData is returned by POST /signup.
type SignupData struct {
	VerificationToken string `json:"verificationToken"`
}

// LoginData is returned by POST /login. Exactly one of AccessToken and
// VerificationToken is set.
type LoginData struct {
	AccessToken       string       `json:"accessToken,omitempty"`
	User              *domain.User `json:"user,omitempty"`
	NeedsVerification bool         `json:"needsVerification,omitempty"`
	VerificationToken string       `json:"verificationToken,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, msg string, data interface{}) {
	writeJSON(w, status, Envelope{Status: status, Message: msg, Data: data})
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, Envelope{Status: status, Message: msg, Error: kind})
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
