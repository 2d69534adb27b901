package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/email"
	"github.com/ErlanBelekov/auth-service/internal/metrics"
	"github.com/ErlanBelekov/auth-service/internal/password"
	"github.com/ErlanBelekov/auth-service/internal/repository"
)

// fallbackDigest is a bcrypt digest of a random string. It is compared
// against when no user matches the email so that a miss costs the same as a
// wrong password.
const fallbackDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
	MaxAge() time.Duration
}

type AuthUsecase struct {
	users       repository.UserRepository
	hasher      Hasher
	tokens      TokenIssuer
	email       email.Sender
	logger      *slog.Logger
	dummyDigest string
}

func NewAuthUsecase(users repository.UserRepository, hasher Hasher, tokens TokenIssuer, emailSender email.Sender, logger *slog.Logger) *AuthUsecase {
	// Hash with the configured cost so the miss path matches real digests.
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		dummy = fallbackDigest
	}
	return &AuthUsecase{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		email:       emailSender,
		logger:      logger.With("component", "auth_usecase"),
		dummyDigest: dummy,
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Register creates a standard, unverified user. The directory's unique
// constraint is authoritative for duplicates; the lookup beforehand only
// spares a bcrypt round for the common case.
func (u *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := u.register(ctx, input)
	metrics.RegistrationsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	msg := email.Welcome(user.Name)
	if err := u.email.Send(ctx, user.Email, msg.Subject, msg.HTML); err != nil {
		u.logger.WarnContext(ctx, "send welcome email", "user_id", user.ID, "error", err)
	}

	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (u *AuthUsecase) register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Password != input.PasswordConfirm {
		return nil, domain.ErrPasswordMismatch
	}

	_, err := u.users.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateEmail
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	digest, err := u.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, password.ErrEmptyPassword) || errors.Is(err, password.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPassword, err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := u.users.Create(ctx, &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: digest,
		Role:         domain.RoleUser,
		Verified:     false,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	User      *domain.User
}

// Login returns domain.ErrInvalidCredentials for an unknown email, a wrong
// password and an unusable stored digest alike.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, plaintext string) (*LoginResult, error) {
	result, err := u.login(ctx, emailAddr, plaintext)
	metrics.LoginsTotal.WithLabelValues(outcome(err)).Inc()
	return result, err
}

func (u *AuthUsecase) login(ctx context.Context, emailAddr, plaintext string) (*LoginResult, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	digest := u.dummyDigest
	if user != nil {
		digest = user.PasswordHash
	}

	ok, verifyErr := u.hasher.Verify(plaintext, digest)
	if verifyErr != nil && user != nil {
		u.logger.ErrorContext(ctx, "stored password digest is unusable", "user_id", user.ID, "error", verifyErr)
	}
	if user == nil || !ok {
		return nil, domain.ErrInvalidCredentials
	}

	signed, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	u.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{
		Token:     signed,
		ExpiresIn: u.tokens.MaxAge(),
		User:      user,
	}, nil
}

// Logout has no server-side effect: tokens are not stored, so the transport
// clears the client's copy and the token itself lives until it expires.
func (u *AuthUsecase) Logout(ctx context.Context, id domain.Identity) {
	metrics.LogoutsTotal.Inc()
	u.logger.InfoContext(ctx, "user logged out", "user_id", id.UserID)
}

// GetSelf reloads the authenticated user. A token can outlive its user, so
// domain.ErrUserNotFound is possible here.
func (u *AuthUsecase) GetSelf(ctx context.Context, id domain.Identity) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrPasswordMismatch), errors.Is(err, domain.ErrInvalidPassword):
		return "invalid_input"
	default:
		return "error"
	}
}
