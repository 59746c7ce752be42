package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/pkg/tracing"
	"streamhub/pkg/validation"

	"go.uber.org/zap"
)

type authService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenCodec
	clock    ports.Clock
	tokenTTL time.Duration
	logger   *zap.SugaredLogger
	observer ports.AuthObserver
}

// NewAuthService wires signup, login and token resolution. observer may be nil.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	clock ports.Clock,
	tokenTTL time.Duration,
	logger *zap.SugaredLogger,
	observer ports.AuthObserver,
) ports.AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		clock:    clock,
		tokenTTL: tokenTTL,
		logger:   logger,
		observer: observer,
	}
}

func (s *authService) Signup(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "signup")
	defer span.End()
	defer func() { s.observe(ctx, "signup", err) }()

	email = validation.NormalizeEmail(email)

	_, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return "", domain.ErrEmailAlreadyRegistered
	case !errors.Is(err, domain.ErrUserNotFound):
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    s.clock.Now(),
	}
	if err = s.users.Add(ctx, user); err != nil {
		// Lost a concurrent signup race for the same email.
		if errors.Is(err, domain.ErrDuplicateUser) {
			return "", domain.ErrEmailAlreadyRegistered
		}
		return "", fmt.Errorf("failed to add user: %w", err)
	}

	token, err = s.tokens.Issue(email, s.clock.Now(), s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Infow("user signed up", "email", email)
	return token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := tracing.TraceAuthOperation(ctx, "login")
	defer span.End()
	defer func() { s.observe(ctx, "login", err) }()

	email = validation.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}

	token, err = s.tokens.Issue(user.Email, s.clock.Now(), s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

func (s *authService) CurrentUser(ctx context.Context, token string) (string, error) {
	_, span := tracing.TraceAuthOperation(ctx, "verify")
	defer span.End()

	subject, err := s.tokens.Verify(token, s.clock.Now())
	if err != nil {
		return "", domain.ErrUnauthorized
	}
	return subject, nil
}

func (s *authService) observe(ctx context.Context, flow string, err error) {
	if s.observer != nil {
		s.observer.AuthAttempt(flow, err)
	}
	if err != nil && !errors.Is(err, domain.ErrInvalidCredentials) && !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("auth flow failed", "flow", flow, "error", err)
	}
}
