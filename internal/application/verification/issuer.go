// Package verification issues the short-lived numeric codes mailed to pending users.
package verification

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/go-signup-verify/internal/domain"
)

// codeSpace is the number of distinct codes of domain.VerificationCodeLength digits.
var codeSpace = big.NewInt(1_000_000)

// Issuer generates verification codes. Codes are scoped per user; no
// cross-user uniqueness is attempted.
type Issuer struct {
	random io.Reader
	now    func() time.Time
	ttl    time.Duration
}

type Option func(*Issuer)

// WithRandom overrides the entropy source (crypto/rand by default).
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) { i.random = r }
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{
		random: rand.Reader,
		now:    time.Now,
		ttl:    domain.VerificationCodeTTL,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue draws a uniform 6-digit code, stores it with its expiry on u and
// returns it. The caller persists u.
func (i *Issuer) Issue(u *domain.User) (string, error) {
	n, err := rand.Int(i.random, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	code := fmt.Sprintf("%0*d", domain.VerificationCodeLength, n.Int64())
	expiry := i.now().UTC().Add(i.ttl)
	u.VerificationCode = &code
	u.VerificationCodeExpiry = &expiry
	return code, nil
}
