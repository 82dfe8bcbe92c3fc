package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/nexus226/backend/internal/config"
	"github.com/nexus226/backend/internal/db"
	"github.com/nexus226/backend/internal/goroutine"
	httpHandlers "github.com/nexus226/backend/internal/http/handlers"
	httpRouter "github.com/nexus226/backend/internal/http/router"
	"github.com/nexus226/backend/internal/logger"
	"github.com/nexus226/backend/internal/ratelimit"
	"github.com/nexus226/backend/internal/repository"
	"github.com/nexus226/backend/internal/repository/common"
	"github.com/nexus226/backend/internal/service"
	"github.com/nexus226/backend/internal/storage"
	"github.com/nexus226/backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := cfg.LogLevel
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.IsProduction())

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis необязателен: без него счётчики лимитов живут в памяти процесса.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Log.Warn("main: REDIS_URL не задан, лимиты считаются в памяти процесса")
	}

	proposalLimiter := newLimiter(redisClient, "nexus226:proposals", cfg.ProposalRateLimit, cfg.ProposalRatePeriod)
	chatCooldown := newLimiter(redisClient, "nexus226:chat", 1, cfg.ChatCooldown)
	ipLimiter := newLimiter(redisClient, "nexus226:ip", cfg.RateLimitLimit, cfg.RateLimitPeriod)

	mediaStore, err := storage.NewLocalStore(cfg.MediaStoragePath, cfg.MediaBaseURL)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	tx := common.NewTransactor(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	serviceRepo := repository.NewServiceRepository(dbConn)
	proposalRepo := repository.NewProposalRepository(dbConn)
	chatRepo := repository.NewChatRepository(dbConn)
	badgeRepo := repository.NewBadgeRepository(dbConn)
	adminLogRepo := repository.NewAdminLogRepository(dbConn)

	// Сервисы.
	cache := service.NewCacheService(ctx, time.Minute)
	defer cache.Close()

	tokens := service.NewTokenVerifier(cfg.JWTSecret, cfg.JWTAudience)
	authz := service.NewAuthorizer(userRepo)
	catalogService := service.NewCatalogService(catalogRepo, serviceRepo, cache)
	proposalService := service.NewProposalService(tx, serviceRepo, proposalRepo, catalogRepo, proposalLimiter)
	moderationService := service.NewModerationService(tx, proposalRepo, serviceRepo, catalogRepo, userRepo, adminLogRepo, cache)
	badgeService := service.NewBadgeService(tx, badgeRepo, adminLogRepo)
	profileService := service.NewProfileService(userRepo, badgeRepo)
	chatService := service.NewChatService(chatRepo, catalogRepo, mediaStore, chatCooldown, authz, service.ChatConfig{
		MaxImageBytes: cfg.ChatImageMaxBytes(),
		HistoryLimit:  cfg.ChatHistoryLimit,
	})

	if err := badgeService.SyncCatalog(ctx, cfg.BadgeCatalogPath); err != nil {
		logger.Log.Fatalf("main: не удалось синхронизировать каталог наград: %v", err)
	}

	// Вебсокеты: хаб комнат и поток изменений из Postgres.
	hub := ws.NewHub(chatRepo, cfg.ChatHistoryLimit)
	goroutine.SafeGoWithContext(ctx, "ws.hub", hub.Run)

	feed := ws.NewFeed(cfg.DatabaseURL, chatRepo, hub)
	goroutine.SafeGoWithContext(ctx, "ws.feed", func(ctx context.Context) {
		if err := feed.Run(ctx); err != nil {
			logger.Log.WithError(err).Error("main: поток изменений чата остановлен")
		}
	})

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Health:   httpHandlers.NewHealthHandler(dbConn, redisClient),
		Catalog:  httpHandlers.NewCatalogHandler(catalogService),
		Proposal: httpHandlers.NewProposalHandler(proposalService),
		Admin:    httpHandlers.NewAdminHandler(moderationService, badgeService),
		Badge:    httpHandlers.NewBadgeHandler(badgeService),
		Profile:  httpHandlers.NewProfileHandler(profileService),
		Chat:     httpHandlers.NewChatHandler(chatService),
		WS:       httpHandlers.NewWSHandler(hub, tokens, catalogService, cfg.AllowedOrigins),
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, handlers, httpRouter.Security{
		Tokens:    tokens,
		Authz:     authz,
		IPLimiter: ipLimiter,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http.shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: ошибка остановки http сервера: %v", err)
		}
	})

	logger.Log.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

func newLimiter(client *redis.Client, prefix string, limit int64, period time.Duration) *ratelimit.Limiter {
	store, err := ratelimit.NewStore(client, prefix)
	if err != nil {
		logger.Log.Fatalf("main: не удалось создать хранилище лимитов %s: %v", prefix, err)
	}
	return ratelimit.New(store, limit, period)
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.Errorf("main: ошибка закрытия базы: %v", err)
	}
}
