package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/transport/http/middleware"
	"github.com/ErlanBelekov/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	Logout(ctx context.Context, id domain.Identity)
	GetSelf(ctx context.Context, id domain.Identity) (*domain.User, error)
}

type AuthHandler struct {
	authUsecase  authUsecaser
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase:  authUsecase,
		cookieSecure: cookieSecure,
		logger:       logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Name            string `json:"name"            binding:"required,max=100"`
	Email           string `json:"email"           binding:"required,email,max=254"`
	Password        string `json:"password"        binding:"required,min=6,max=64"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, h.logger, errInvalidBody, err)
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPasswordMismatch):
			fail(c, http.StatusBadRequest, errPasswordMismatch)
		case errors.Is(err, domain.ErrInvalidPassword):
			fail(c, http.StatusBadRequest, errInvalidPassword)
		case errors.Is(err, domain.ErrDuplicateEmail):
			fail(c, http.StatusConflict, errDuplicateEmail)
		default:
			h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
			internalError(c)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"user": toUserResponse(user)},
	})
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
// Returns the token in the body and as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, h.logger, errInvalidBody, err)
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			fail(c, http.StatusBadRequest, errInvalidCredentials)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		internalError(c)
		return
	}

	h.setTokenCookie(c, res.Token, int(res.ExpiresIn.Seconds()))
	c.JSON(http.StatusOK, gin.H{"status": "success", "token": res.Token})
}

// GET /api/auth/logout
// Tokens are stateless: this only clears the client's cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	h.authUsecase.Logout(c.Request.Context(), id)
	h.setTokenCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GET /api/users/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, errUnauthenticated)
		return
	}

	user, err := h.authUsecase.GetSelf(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			fail(c, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "get self", "error", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"user": toUserResponse(user)},
	})
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", h.cookieSecure, true)
}
