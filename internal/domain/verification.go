package domain

import "time"

// Token purposes. A token minted for one purpose never authorizes another.
const (
	PurposeEmailVerification = "email_verification"
	PurposeAccess            = "access"
)

const (
	VerificationCodeLength = 6
	VerificationCodeTTL    = time.Hour
	VerificationTokenTTL   = time.Hour
)

// VerificationEmailSubject is the subject line of the mailed code.
const VerificationEmailSubject = "Verify your email - Code valid for 1 hour"
