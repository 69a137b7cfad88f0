package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/hostel-backend/internal/config"
	"github.com/ignatzorin/hostel-backend/internal/db"
	httpHandlers "github.com/ignatzorin/hostel-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/hostel-backend/internal/http/router"
	"github.com/ignatzorin/hostel-backend/internal/logger"
	"github.com/ignatzorin/hostel-backend/internal/repository"
	"github.com/ignatzorin/hostel-backend/internal/service"
	"github.com/ignatzorin/hostel-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	visitingHours, err := service.NewVisitingHours(cfg.VisitingHoursStart, cfg.VisitingHoursEnd)
	if err != nil {
		log.Fatalf("main: неверные часы посещений: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	studentRepo := repository.NewStudentRepository(dbConn)
	otpRepo := repository.NewOTPRepository(dbConn)
	visitRepo := repository.NewVisitRepository(dbConn)
	overrideRepo := repository.NewOverrideRepository(dbConn)
	outpassRepo := repository.NewOutpassRepository(dbConn)
	preferenceRepo := repository.NewPreferenceRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	notificationService := service.NewNotificationService(notificationRepo)
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	checkinService := service.NewCheckinService(studentRepo, otpRepo, visitRepo, preferenceRepo, hub, visitingHours, cfg.OTPTTL)
	overrideService := service.NewOverrideService(overrideRepo, studentRepo, visitRepo, preferenceRepo, hub, visitingHours)
	outpassService := service.NewOutpassService(outpassRepo, studentRepo, hub)
	preferenceService := service.NewPreferenceService(preferenceRepo, studentRepo)

	// Фоновая уборка истёкших кодов и сессий.
	janitor := service.NewJanitor(otpRepo, userRepo, cfg.OTPCleanupInterval, cfg.OTPRetention)
	janitor.Start(ctx)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	checkinHandler := httpHandlers.NewCheckinHandler(checkinService, studentRepo)
	overrideHandler := httpHandlers.NewOverrideHandler(overrideService)
	outpassHandler := httpHandlers.NewOutpassHandler(outpassService, studentRepo)
	preferenceHandler := httpHandlers.NewPreferenceHandler(preferenceService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		checkinHandler,
		overrideHandler,
		outpassHandler,
		preferenceHandler,
		notificationHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
