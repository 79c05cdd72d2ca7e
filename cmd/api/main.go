package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/softiel/backend/internal/auth"
	"github.com/softiel/backend/internal/cache"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/database"
	"github.com/softiel/backend/internal/dto"
	"github.com/softiel/backend/internal/handler"
	"github.com/softiel/backend/internal/messaging"
	"github.com/softiel/backend/internal/middleware"
	"github.com/softiel/backend/internal/observability"
	"github.com/softiel/backend/internal/repository"
	"github.com/softiel/backend/internal/service"
	"github.com/softiel/backend/internal/storage"
	"github.com/softiel/backend/pkg/logger"
	"go.uber.org/zap"
)

const serviceName = "softiel-comments"

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Connect to database
	db, err := database.Connect(cfg.Database, cfg.App.Env)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql db", zap.Error(err))
	}
	defer sqlDB.Close()

	// Metrics
	registry := observability.NewMetricsRegistry()
	httpMetrics := observability.NewHTTPMetrics(registry, serviceName)
	commentMetrics := observability.NewCommentMetrics(registry, serviceName)

	// Initialize repositories
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewCommentLikeRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	activityService := service.NewActivityService(activityRepo, log)
	activityService.SetMetrics(commentMetrics)
	commentService := service.NewCommentService(commentRepo, likeRepo, activityService, cfg.Comments, log)
	commentService.SetMetrics(commentMetrics)

	// Redis backs the comment cache and the token blacklist
	var redisClient *redis.Client
	var blacklist *cache.TokenBlacklist
	if cfg.Redis.Enabled() {
		redisClient = cache.NewRedis(cfg.Redis)
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(ctx, redisClient); err != nil {
			log.Warn("redis unreachable, continuing without cache", zap.Error(err))
		}
		cancel()

		commentService.SetCache(cache.NewCommentCache(redisClient, cfg.Redis.TTL, log))
		blacklist = cache.NewTokenBlacklist(redisClient)
	}

	if cfg.Kafka.Enabled() {
		writer := messaging.NewKafkaWriter(cfg.Kafka, cfg.Kafka.ActivityTopic)
		defer writer.Close()
		activityService.SetPublisher(writer, cfg.Kafka.ActivityTopic)
	}

	if cfg.MinIO.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		minioClient, err := storage.NewMinIOClient(ctx, cfg.MinIO, log)
		cancel()
		if err != nil {
			log.Fatal("failed to connect to MinIO", zap.Error(err))
		}
		commentService.SetExportStore(minioClient)
	}

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize auth middleware. A nil *TokenBlacklist must not become a
	// non-nil interface.
	var authMiddleware *middleware.AuthMiddleware
	var revoker handler.TokenRevoker
	if blacklist != nil {
		authMiddleware = middleware.NewAuthMiddleware(jwtService, blacklist)
		revoker = blacklist
	} else {
		authMiddleware = middleware.NewAuthMiddleware(jwtService, nil)
	}

	// Initialize handlers
	validate := handler.NewValidator()
	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(jwtService, cfg.Comments, revoker, validate, log),
		Comment:  handler.NewCommentHandler(commentService, validate, int64(cfg.Comments.ExportURLExpiry.Seconds()), log),
		Activity: handler.NewActivityHandler(activityService, log),
		Health:   handler.NewHealthHandler(sqlDB, redisClient, cfg.Kafka.Brokers, log),
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: serviceName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(dto.ErrorResponse(errorCode(code), err.Error()))
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID("X-Request-ID"))
	app.Use(middleware.RequestLogger(log))
	if cfg.Metrics.Enabled {
		app.Use(httpMetrics.Middleware())
		app.Get(cfg.Metrics.Path, httpMetrics.Handler())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORS.Origins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization," + middleware.ViewerHeader,
		AllowCredentials: true,
	}))

	// API v1 routes
	api := app.Group("/api/v1")
	handler.RegisterRoutes(api, handlers, authMiddleware)

	// Activity retention
	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	if cfg.Comments.ActivityRetention > 0 {
		go pruneActivities(pruneCtx, activityService, cfg.Comments.ActivityRetention, log)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("shutting down server")
		stopPrune()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	}
	if status < fiber.StatusInternalServerError {
		return "BAD_REQUEST"
	}
	return "INTERNAL_ERROR"
}

func pruneActivities(ctx context.Context, svc *service.ActivityService, retention time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		removed, err := svc.Prune(ctx, retention)
		if err != nil {
			log.Warn("activity prune failed", zap.Error(err))
		} else if removed > 0 {
			log.Info("activities pruned", zap.Int64("removed", removed))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
