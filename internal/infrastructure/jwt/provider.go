package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-signup-verify/internal/config"
	"github.com/go-signup-verify/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID  string `json:"userId"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs carrying a declared purpose.
type Provider struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

type Option func(*Provider)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(cfg config.TokenConfig, opts ...Option) (*Provider, error) {
	if cfg.Secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	p := &Provider{
		secret:    []byte(cfg.Secret),
		accessTTL: cfg.AccessTokenTTL,
		now:       time.Now,
	}
	if p.accessTTL <= 0 {
		p.accessTTL = 24 * time.Hour
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Mint issues a token for userID scoped to purpose, expiring exactly ttl after issuance.
func (p *Provider) Mint(userID, purpose string, ttl time.Duration) (string, error) {
	now := p.now().Truncate(time.Second)
	claims := Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

func (p *Provider) MintVerification(userID string) (string, error) {
	return p.Mint(userID, domain.PurposeEmailVerification, domain.VerificationTokenTTL)
}

func (p *Provider) MintAccess(userID string) (string, error) {
	return p.Mint(userID, domain.PurposeAccess, p.accessTTL)
}

// Verify checks signature, algorithm and expiry, then requires the purpose
// claim to equal purpose. Every failure wraps domain.ErrInvalidToken.
func (p *Provider) Verify(tokenStr, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidToken)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrInvalidToken)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose %q not accepted: %w", claims.Purpose, domain.ErrInvalidToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no subject: %w", domain.ErrInvalidToken)
	}
	return claims, nil
}
