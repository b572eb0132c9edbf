package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		KindValidation:         fmt.Errorf("username is required: %w", ErrValidation),
		KindDuplicateUser:      fmt.Errorf("taken: %w", ErrDuplicateUser),
		KindInvalidToken:       fmt.Errorf("expired: %w", ErrInvalidToken),
		KindCodeExpired:        ErrCodeExpired,
		KindCodeMismatch:       ErrCodeMismatch,
		KindAlreadyVerified:    fmt.Errorf("u1: %w", ErrAlreadyVerified),
		KindNotFound:           fmt.Errorf("u1: %w", ErrNotFound),
		KindEmailDispatch:      fmt.Errorf("smtp: %w", ErrEmailDispatch),
		KindInvalidCredentials: ErrInvalidCredentials,
		KindInternal:           errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, ErrorKind(err), err.Error())
	}
}
