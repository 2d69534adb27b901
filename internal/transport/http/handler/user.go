package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type userUsecaser interface {
	ListUsers(ctx context.Context, input usecase.ListUsersInput) (*usecase.UserPage, error)
}

type UserHandler struct {
	userUsecase userUsecaser
	logger      *slog.Logger
}

func NewUserHandler(userUsecase userUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		logger:      logger.With("component", "user_handler"),
	}
}

type listUsersQuery struct {
	Page  int `form:"page"  binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// GET /api/users?page=&limit=
func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, h.logger, errInvalidQuery, err)
		return
	}

	page, err := h.userUsecase.ListUsers(c.Request.Context(), usecase.ListUsersInput{
		Page:  q.Page,
		Limit: q.Limit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPageOutOfRange) {
			fail(c, http.StatusBadRequest, errPageOutOfRange)
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "list users", "error", err)
		internalError(c)
		return
	}

	users := make([]userResponse, len(page.Users))
	for i, u := range page.Users {
		users[i] = toUserResponse(u)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"users":   users,
		"results": len(users),
		"total":   page.Total,
		"page":    page.Page,
		"limit":   page.Limit,
	})
}
