package main

import (
	"context"
	"flag"
	"time"

	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/database"
	"github.com/softiel/backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	fresh := flag.Bool("fresh", false, "drop every comment table before migrating")
	createDB := flag.Bool("create-db", true, "create the database when it does not exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting comments migration", zap.String("database", cfg.Database.Name))

	if *createDB {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		created, err := database.EnsureDatabase(ctx, cfg.Database)
		cancel()
		if err != nil {
			log.Fatal("ensure database failed", zap.Error(err))
		}
		if created {
			log.Info("database created", zap.String("database", cfg.Database.Name))
		}
	}

	db, err := database.Connect(cfg.Database, cfg.App.Env)
	if err != nil {
		log.Fatal("connect database failed", zap.Error(err))
	}

	if *fresh {
		log.Warn("dropping comment tables")
		if err := database.DropAll(db); err != nil {
			log.Fatal("drop tables failed", zap.Error(err))
		}
	}

	if err := database.Migrate(db, log); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("migration completed")
}
