package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"jobPortal/internal/api/middleware"
	"jobPortal/internal/auth"
	"jobPortal/internal/config"
	"jobPortal/internal/store"
	"jobPortal/internal/storage"
	"jobPortal/internal/workflow"
)

// Dependencies 汇总路由注册所需的组件。Storage 与 Broadcaster 可为空。
type Dependencies struct {
	Config      *config.Config
	Store       *store.Store
	Service     *workflow.Service
	AuthService *auth.AuthService
	Redis       *redis.Client
	Storage     *storage.Client
	Broadcaster workflow.Broadcaster
	Logger      *slog.Logger
}

// RegisterRoutes 注册 /v1 下的业务路由。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	var files resumeStorage
	if deps.Storage != nil {
		files = deps.Storage
	}

	jobHandler := NewJobHandler(deps.Service, deps.Store, cfg.API.PageSize)
	notificationHandler := NewNotificationHandler(deps.Store, deps.Broadcaster)
	userHandler := NewUserHandler(deps.Service, deps.Store, files, newClamdScanner(cfg.Upload.ClamdAddr), cfg.Upload.MaxResumeBytes)
	guard := newSessionGuard(deps.Redis, cfg.API.LoginRateLimitPerHour, cfg.API.LoginLockThreshold, cfg.API.LoginLockTTL)
	authHandler := NewAuthHandler(deps.Store, deps.AuthService, guard, cfg.API.CookieDomain)
	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, deps.Logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(deps.AuthService)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.AuthService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()
	adminOnly := middleware.RequireAdminMiddleware()
	submitLimiter := middleware.NewClientRateLimiter(cfg.API.SubmitRatePerSecond, cfg.API.SubmitBurst)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/password", authMiddleware, authHandler.ChangePassword)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/search", jobHandler.SearchJobs)
			jobs.GET("/:id", optionalAuth, jobHandler.GetJob)

			member := jobs.Group("", authMiddleware, passwordGate)
			member.POST("/:id/apply", jobHandler.Apply)
			member.GET("/:id/test", jobHandler.GetAssessment)
			member.POST("/:id/test", submitLimiter.Middleware(), jobHandler.SubmitAssessment)

			admin := jobs.Group("", authMiddleware, passwordGate, adminOnly)
			admin.POST("", jobHandler.CreateJob)
			admin.PATCH("/:id", jobHandler.UpdateJob)
			admin.DELETE("/:id", jobHandler.DeleteJob)
			admin.PUT("/:id/status", jobHandler.SetStatus)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)

			admin := notifications.Group("", authMiddleware, passwordGate, adminOnly)
			admin.POST("", notificationHandler.CreateNotification)
			admin.PATCH("/:id", notificationHandler.UpdateNotification)
			admin.DELETE("/:id", notificationHandler.DeleteNotification)
		}

		users := v1.Group("/users", authMiddleware, passwordGate)
		{
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.POST("/:id/resume", userHandler.UploadResume)
			users.GET("/:id/resume", userHandler.GetResumeLink)
		}
	}
}
