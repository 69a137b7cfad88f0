package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/hostel-backend/internal/config"
	"github.com/ignatzorin/hostel-backend/internal/http/handlers"
	"github.com/ignatzorin/hostel-backend/internal/http/middleware"
	"github.com/ignatzorin/hostel-backend/internal/models"
	"github.com/ignatzorin/hostel-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	checkinHandler *handlers.CheckinHandler,
	overrideHandler *handlers.OverrideHandler,
	outpassHandler *handlers.OutpassHandler,
	preferenceHandler *handlers.PreferenceHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), authHandler.DeleteSession)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))

	// Проходная: запрос и проверка кодов ограничены по частоте,
	// чтобы код нельзя было перебрать.
	guardOnly := middleware.RequireRole(models.RoleGuard)
	staff := middleware.RequireRole(models.RoleGuard, models.RoleWarden)
	wardenOnly := middleware.RequireRole(models.RoleWarden)
	checkinRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	{
		protected.POST("/checkin/request-otp", guardOnly, checkinRateLimit, checkinHandler.RequestOtp)
		protected.POST("/checkin/verify-otp", guardOnly, checkinRateLimit, checkinHandler.VerifyOtp)
		protected.GET("/visits/active", staff, checkinHandler.ActiveVisits)
		protected.POST("/visits/:id/checkout", middleware.UUIDValidator("id"), guardOnly, checkinHandler.Checkout)

		protected.GET("/students/search", staff, checkinHandler.SearchStudents)
		protected.GET("/students/:id", middleware.UUIDValidator("id"), staff, checkinHandler.GetStudent)
		protected.GET("/students/:id/visits", middleware.UUIDValidator("id"), checkinHandler.VisitHistory)
	}

	// Внеурочные визиты: охранник подаёт, комендант решает.
	{
		protected.POST("/overrides", guardOnly, overrideHandler.RequestOverride)
		protected.GET("/overrides/pending", wardenOnly, overrideHandler.PendingQueue)
		protected.GET("/overrides/my", guardOnly, overrideHandler.MyRequests)
		protected.GET("/overrides/:id", middleware.UUIDValidator("id"), staff, overrideHandler.GetRequest)
		protected.POST("/overrides/:id/resolve", middleware.UUIDValidator("id"), wardenOnly, overrideHandler.Resolve)
	}

	// Увольнительные.
	{
		protected.POST("/outpasses", middleware.RequireRole(models.RoleStudent), outpassHandler.Create)
		protected.GET("/outpasses/my", middleware.RequireRole(models.RoleStudent), outpassHandler.My)
		protected.GET("/outpasses/pending", wardenOnly, outpassHandler.PendingQueue)
		protected.GET("/outpasses/out", staff, outpassHandler.AwaitingReturn)
		protected.GET("/outpasses/:id", middleware.UUIDValidator("id"), outpassHandler.Get)
		protected.POST("/outpasses/:id/resolve", middleware.UUIDValidator("id"), wardenOnly, outpassHandler.Resolve)
		protected.POST("/outpasses/:id/out", middleware.UUIDValidator("id"), guardOnly, outpassHandler.MarkOut)
		protected.POST("/outpasses/:id/return", middleware.UUIDValidator("id"), guardOnly, outpassHandler.MarkReturned)
	}

	// Настройки приёма посетителей (студент).
	studentOnly := middleware.RequireRole(models.RoleStudent)
	{
		protected.GET("/preferences", studentOnly, preferenceHandler.GetPreferences)
		protected.PUT("/preferences", studentOnly, preferenceHandler.UpdatePreferences)
		protected.GET("/preferences/whitelist", studentOnly, preferenceHandler.ListWhitelist)
		protected.POST("/preferences/whitelist", studentOnly, preferenceHandler.AddWhitelistContact)
		protected.DELETE("/preferences/whitelist/:id", middleware.UUIDValidator("id"), studentOnly, preferenceHandler.RemoveWhitelistContact)
		protected.GET("/preferences/backup-contacts", studentOnly, preferenceHandler.ListBackupContacts)
		protected.POST("/preferences/backup-contacts", studentOnly, preferenceHandler.AddBackupContact)
		protected.DELETE("/preferences/backup-contacts/:id", middleware.UUIDValidator("id"), studentOnly, preferenceHandler.RemoveBackupContact)
	}

	// Уведомления.
	{
		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.DeleteNotification)
	}

	return r
}
