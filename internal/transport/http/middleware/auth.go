package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/metrics"
	"github.com/ErlanBelekov/auth-service/internal/token"
	"github.com/gin-gonic/gin"
)

const (
	// TokenCookie is the cookie login sets and the guard reads first.
	TokenCookie = "token"

	identityKey = "identity"

	msgUnauthenticated = "You are not logged in, please provide token"
	msgForbidden       = "You are not allowed to perform this action"
	msgInternal        = "Internal server error"
)

type TokenValidator interface {
	Validate(raw string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Guard turns a bearer token into a domain.Identity and enforces policies
// against it.
type Guard struct {
	tokens TokenValidator
	users  UserFinder
	logger *slog.Logger
}

func NewGuard(tokens TokenValidator, users UserFinder, logger *slog.Logger) *Guard {
	return &Guard{
		tokens: tokens,
		users:  users,
		logger: logger.With("component", "auth_guard"),
	}
}

// Authenticate resolves the request's token to a live user. On success the
// identity is available through IdentityFrom and domain.IdentityFromContext.
func (g *Guard) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		candidates := extractTokens(c)
		if len(candidates) == 0 {
			g.reject(c, "missing_token")
			return
		}

		// A stale cookie must not mask a valid bearer header.
		var (
			userID string
			err    error
		)
		for _, raw := range candidates {
			if userID, err = g.tokens.Validate(raw); err == nil {
				break
			}
		}
		if err != nil {
			reason := token.Reason(err)
			g.logger.DebugContext(ctx, "token rejected", "reason", reason)
			g.reject(c, reason)
			return
		}

		user, err := g.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				g.logger.DebugContext(ctx, "token subject no longer exists", "user_id", userID)
				g.reject(c, "user_not_found")
				return
			}
			g.logger.ErrorContext(ctx, "load token subject", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": msgInternal})
			return
		}

		SetIdentity(c, domain.IdentityOf(user))
		c.Next()
	}
}

// Authorize must run after Authenticate.
func (g *Guard) Authorize(policy domain.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			g.reject(c, "missing_identity")
			return
		}
		if !id.Role.Valid() || !policy(id) {
			metrics.GuardRejectionsTotal.WithLabelValues("forbidden").Inc()
			g.logger.InfoContext(c.Request.Context(), "access denied", "role", string(id.Role), "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "fail", "message": msgForbidden})
			return
		}
		c.Next()
	}
}

func (g *Guard) reject(c *gin.Context, reason string) {
	metrics.GuardRejectionsTotal.WithLabelValues(reason).Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": msgUnauthenticated})
}

// SetIdentity attaches id to both the gin context and the request context.
func SetIdentity(c *gin.Context, id domain.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(domain.WithIdentity(c.Request.Context(), id))
}

// IdentityFrom returns the identity set by Authenticate.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

// extractTokens returns the cookie token, then the bearer token, skipping
// whichever is absent.
func extractTokens(c *gin.Context) []string {
	var out []string
	if v, err := c.Cookie(TokenCookie); err == nil && v != "" {
		out = append(out, v)
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		if v := strings.TrimSpace(header[7:]); v != "" {
			out = append(out, v)
		}
	}
	return out
}
