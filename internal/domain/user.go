package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is the credential record. A record is either pending (IsVerified=false,
// code set) or active (IsVerified=true, code and expiry cleared).
type User struct {
	UserID                 string     `json:"id" dynamodbav:"user_id"`
	Username               string     `json:"username" dynamodbav:"username"`
	Email                  string     `json:"email" dynamodbav:"email"`
	PasswordHash           string     `json:"-" dynamodbav:"password_hash"`
	VerificationCode       *string    `json:"-" dynamodbav:"verification_code,omitempty"`
	VerificationCodeExpiry *time.Time `json:"-" dynamodbav:"verification_code_expiry,omitempty"`
	IsVerified             bool       `json:"is_verified" dynamodbav:"is_verified"`
	CreatedAt              time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt              time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Pending reports whether the record still awaits email verification.
func (u *User) Pending() bool {
	return !u.IsVerified
}

type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

// Normalize trims identity fields and lower-cases the email address.
func (r *SignupRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = NormalizeEmail(r.Email)
}

type VerifyEmailRequest struct {
	Code  string `json:"code" validate:"required,len=6,number"`
	Token string `json:"token" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerifyConflict explains why a conditional verify of userID with a given code
// matched nothing. current is the record as stored now, nil if it is gone.
func VerifyConflict(userID string, current *User) error {
	switch {
	case current == nil:
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	case current.IsVerified:
		return fmt.Errorf("user %s: %w", userID, ErrAlreadyVerified)
	default:
		return fmt.Errorf("user %s: code superseded: %w", userID, ErrCodeMismatch)
	}
}
