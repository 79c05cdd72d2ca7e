package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured postgres database through GORM.
func Connect(cfg config.DatabaseConfig, env string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(env)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// logLevel logs every statement in development and only slow queries and
// errors elsewhere.
func logLevel(env string) logger.LogLevel {
	if env == "development" {
		return logger.Info
	}
	return logger.Warn
}

// EnsureDatabase creates cfg.Name through the maintenance database when it is
// missing. It reports whether the database was created.
func EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig) (bool, error) {
	db, err := sql.Open("postgres", cfg.MaintenanceDSN())
	if err != nil {
		return false, err
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.Name)); err != nil {
		return false, fmt.Errorf("create database: %w", err)
	}
	return true, nil
}

// Step is one raw migration statement applied after AutoMigrate.
type Step struct {
	Name string
	SQL  string
}

// Steps are written to run on both postgres and sqlite.
var Steps = []Step{
	{
		Name: "Create index idx_comments_blog_thread",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_comments_blog_thread ON comments(blog_id, created_at, id);",
	},
	{
		Name: "Create index idx_comments_pending",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_comments_pending ON comments(created_at) WHERE is_approved = false AND is_rejected = false;",
	},
	{
		Name: "Create index idx_activities_unread",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_activities_unread ON activities(created_at) WHERE is_read = false;",
	},
}

// Migrate applies the schema of every owned table plus Steps.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("tables migrated", zap.Int("models", len(domain.Models())))

	for _, step := range Steps {
		if err := db.Exec(step.SQL).Error; err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		log.Info("migration step applied", zap.String("step", step.Name))
	}
	return nil
}

// DropAll removes every owned table, children first.
func DropAll(db *gorm.DB) error {
	models := domain.Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			return err
		}
	}
	return nil
}
