package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-signup-verify/internal/domain"
	jwtinfra "github.com/go-signup-verify/internal/infrastructure/jwt"
	"github.com/go-signup-verify/internal/infrastructure/smtp"
	"github.com/go-signup-verify/internal/pkg/id"
	"github.com/go-signup-verify/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	opSignup      = "signup"
	opVerifyEmail = "verify_email"
	opLogin       = "login"
)

type SignupResult struct {
	VerificationToken string
}

// LoginResult carries either an access token for an active account or, for a
// pending one, a fresh verification token.
type LoginResult struct {
	AccessToken       string
	User              *domain.User
	NeedsVerification bool
	VerificationToken string
}

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*SignupResult, error)
	VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	SetVerificationCode(ctx context.Context, userID, code string, expiry time.Time) error
	MarkVerified(ctx context.Context, userID, code string) error
	Delete(ctx context.Context, u *domain.User) error
}

type codeIssuer interface {
	Issue(u *domain.User) (string, error)
}

type tokenMinter interface {
	MintVerification(userID string) (string, error)
	MintAccess(userID string) (string, error)
	Verify(token, purpose string) (*jwtinfra.Claims, error)
}

type outcomeRecorder interface {
	Observe(operation, result string)
}

type service struct {
	users      userStore
	issuer     codeIssuer
	minter     tokenMinter
	mailer     smtp.Mailer
	renderer   smtp.Renderer
	metrics    outcomeRecorder
	now        func() time.Time
	bcryptCost int
}

type ServiceDeps struct {
	UserRepo userStore
	Issuer   codeIssuer
	Minter   tokenMinter
	Mailer   smtp.Mailer
	Renderer smtp.Renderer
	Metrics  outcomeRecorder // optional
	Now      func() time.Time
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:      deps.UserRepo,
		issuer:     deps.Issuer,
		minter:     deps.Minter,
		mailer:     deps.Mailer,
		renderer:   deps.Renderer,
		metrics:    deps.Metrics,
		now:        deps.Now,
		bcryptCost: deps.BcryptCost,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	return s
}

// Signup creates a pending user, mails its verification code and returns a
// verification token. Validation and uniqueness failures happen before any
// write; a failure after the insert deletes the pending user again.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (res *SignupResult, err error) {
	defer func() { s.observe(opSignup, err) }()

	req.Normalize()
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	existing, err := s.users.FindByEmailOrUsername(ctx, req.Email, req.Username)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("user already exists: %w", domain.ErrDuplicateUser)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	code, err := s.issuer.Issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.deliver(ctx, u, code)
	if err != nil {
		s.rollback(ctx, u)
		return nil, err
	}
	return &SignupResult{VerificationToken: token}, nil
}

// VerifyEmail checks, in order, the token, the user state, the code expiry and
// the code itself, then marks the user verified.
func (s *service) VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) (err error) {
	defer func() { s.observe(opVerifyEmail, err) }()

	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	claims, err := s.minter.Verify(req.Token, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}
	u, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrAlreadyVerified)
	}
	if u.VerificationCode == nil || u.VerificationCodeExpiry == nil || s.now().After(*u.VerificationCodeExpiry) {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrCodeExpired)
	}
	if subtle.ConstantTimeCompare([]byte(req.Code), []byte(*u.VerificationCode)) != 1 {
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrCodeMismatch)
	}
	return s.users.MarkVerified(ctx, u.UserID, req.Code)
}

// Login authenticates by email and password. Pending accounts get a fresh
// code by mail and a verification token instead of an access token.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (res *LoginResult, err error) {
	defer func() { s.observe(opLogin, err) }()

	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if u.Pending() {
		code, err := s.issuer.Issue(u)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetVerificationCode(ctx, u.UserID, code, *u.VerificationCodeExpiry); err != nil {
			return nil, err
		}
		token, err := s.deliver(ctx, u, code)
		if err != nil {
			return nil, err
		}
		return &LoginResult{NeedsVerification: true, VerificationToken: token}, nil
	}

	access, err := s.minter.MintAccess(u.UserID)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	return &LoginResult{AccessToken: access, User: u}, nil
}

func (s *service) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

// deliver renders and mails the code and mints the matching verification token.
func (s *service) deliver(ctx context.Context, u *domain.User, code string) (string, error) {
	html, err := s.renderer.Render(u.Username, code)
	if err != nil {
		return "", err
	}
	token, err := s.minter.MintVerification(u.UserID)
	if err != nil {
		return "", fmt.Errorf("mint verification token: %w", err)
	}
	msg := smtp.Message{To: u.Email, Subject: domain.VerificationEmailSubject, HTML: html}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("send verification email: %v: %w", err, domain.ErrEmailDispatch)
	}
	return token, nil
}

func (s *service) rollback(ctx context.Context, u *domain.User) {
	if err := s.users.Delete(context.WithoutCancel(ctx), u); err != nil {
		slog.Warn("failed to roll back pending user", "user_id", u.UserID, "err", err)
		return
	}
	slog.Info("rolled back pending user after failed signup", "user_id", u.UserID)
}

func (s *service) observe(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = domain.ErrorKind(err)
	}
	s.metrics.Observe(operation, result)
}
