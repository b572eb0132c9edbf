package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyConflict(t *testing.T) {
	code := "222222"
	cases := []struct {
		name    string
		current *User
		want    error
	}{
		{"missing", nil, ErrNotFound},
		{"verified", &User{UserID: "u1", IsVerified: true}, ErrAlreadyVerified},
		{"code replaced", &User{UserID: "u1", VerificationCode: &code}, ErrCodeMismatch},
		{"code cleared", &User{UserID: "u1"}, ErrCodeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, VerifyConflict("u1", tc.current), tc.want)
		})
	}
}

func TestSignupRequest_Normalize(t *testing.T) {
	r := SignupRequest{Username: " ana ", Email: "  Ana@X.COM "}
	r.Normalize()
	assert.Equal(t, "ana", r.Username)
	assert.Equal(t, "ana@x.com", r.Email)
}
