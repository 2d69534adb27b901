package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/auth-service/internal/domain"
	"github.com/ErlanBelekov/auth-service/internal/transport/http/handler"
	"github.com/ErlanBelekov/auth-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, guard *middleware.Guard, authHandler *handler.AuthHandler, userHandler *handler.UserHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		Filters:          []sloggin.Filter{sloggin.IgnorePath("/api/healthcheck")},
	}))
	r.Use(middleware.Metrics())

	api := r.Group("/api")
	api.GET("/healthcheck", handler.HealthCheck)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/logout", guard.Authenticate(), authHandler.Logout)

	users := api.Group("/users", guard.Authenticate())
	users.GET("/me", authHandler.Me)
	users.GET("", guard.Authorize(domain.RequireRole(domain.RoleAdmin)), userHandler.List)

	return r
}
