package main

import (
	"context"
	"os"
	"time"

	"github.com/softiel/backend/internal/cache"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/database"
	"github.com/softiel/backend/internal/repository"
	"github.com/softiel/backend/internal/service"
	"github.com/softiel/backend/pkg/logger"
	"go.uber.org/zap"
)

// consoleViewer is the like identity of the moderation console.
const consoleViewer = "console:admin"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg.Database, cfg.App.Env)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// the API caches comment lists in redis; console writes must drop them
	var invalidator service.CacheInvalidator
	if cfg.Redis.Enabled() {
		rdb := cache.NewRedis(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(ctx, rdb); err != nil {
			log.Warn("redis unreachable, cached threads may stay stale", zap.Error(err))
		}
		cancel()
		invalidator = cache.NewCommentCache(rdb, cfg.Redis.TTL, log)
	}

	gateway := service.NewSessionGateway(
		repository.NewCommentRepository(db),
		repository.NewCommentLikeRepository(db),
		invalidator,
		consoleViewer,
	)
	activity := service.NewActivityService(repository.NewActivityRepository(db), log)
	newConsole(os.Stdin, os.Stdout, gateway, activity, cfg.Comments, log).run()
}
