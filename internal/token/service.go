// Package token issues and validates the HS256 JWTs handed to clients after
// login. Tokens are self-contained: nothing is stored server side, so a token
// stays valid until it expires even after the client logs out.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid          = errors.New("token is invalid or expired")
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalid)
	ErrMalformed        = fmt.Errorf("%w: malformed", ErrInvalid)
	ErrExpired          = fmt.Errorf("%w: expired", ErrInvalid)
)

var errNoSecret = errors.New("token: signing secret is empty")

type Service struct {
	secret []byte
	maxAge time.Duration
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Service)

// WithLeeway tolerates clock skew when checking exp. Zero by default.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(secret []byte, maxAge time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errNoSecret
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("token: max age must be positive, got %v", maxAge)
	}

	s := &Service{
		secret: append([]byte(nil), secret...),
		maxAge: maxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}

// Issue signs a token for userID that expires MaxAge from now.
func (s *Service) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue token: %w", ErrMalformed)
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Validate returns the subject of raw. The signature is verified before any
// claim is looked at; the returned error wraps exactly one of
// ErrInvalidSignature, ErrMalformed or ErrExpired.
func (s *Service) Validate(raw string) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", classify(err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return claims.Subject, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}

// Reason is a short, stable label for err, suitable for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
