package http

import (
	"context"
	"time"

	"github.com/go-signup-verify/internal/domain"
	jwtinfra "github.com/go-signup-verify/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from a credential store.
// Both the DynamoDB and MongoDB repositories satisfy it.
type UserRepository interface {
	FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	// Create is an atomic insert-if-absent on id, username and email.
	Create(ctx context.Context, u *domain.User) error
	SetVerificationCode(ctx context.Context, userID, code string, expiry time.Time) error
	// MarkVerified transitions a pending user still holding code to verified exactly once.
	MarkVerified(ctx context.Context, userID, code string) error
	Delete(ctx context.Context, u *domain.User) error
	Ping(ctx context.Context) error
}

// TokenProvider is the minimal interface the router requires from the token minter.
type TokenProvider interface {
	MintVerification(userID string) (string, error)
	MintAccess(userID string) (string, error)
	Verify(token, purpose string) (*jwtinfra.Claims, error)
}
