package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrAlreadyVerified    = errors.New("user already verified")
	ErrNotFound           = errors.New("not found")
	ErrEmailDispatch      = errors.New("email dispatch failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Wire names of the error kinds, shared by the HTTP layer and metrics.
const (
	KindValidation         = "validation_error"
	KindDuplicateUser      = "duplicate_user"
	KindInvalidToken       = "invalid_token"
	KindCodeExpired        = "code_expired"
	KindCodeMismatch       = "code_mismatch"
	KindAlreadyVerified    = "already_verified"
	KindNotFound           = "not_found"
	KindEmailDispatch      = "email_dispatch_failed"
	KindInvalidCredentials = "invalid_credentials"
	KindInternal           = "internal_error"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrDuplicateUser, KindDuplicateUser},
	{ErrInvalidToken, KindInvalidToken},
	{ErrCodeExpired, KindCodeExpired},
	{ErrCodeMismatch, KindCodeMismatch},
	{ErrAlreadyVerified, KindAlreadyVerified},
	{ErrNotFound, KindNotFound},
	{ErrEmailDispatch, KindEmailDispatch},
	{ErrInvalidCredentials, KindInvalidCredentials},
}

// ErrorKind classifies err by the first domain sentinel it wraps.
// Errors wrapping none of them are KindInternal.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
