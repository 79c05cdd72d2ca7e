package handler

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/softiel/backend/internal/cache"
	"go.uber.org/zap"
)

type HealthHandler struct {
	db           sqlDB
	redis        *redis.Client
	kafkaBrokers []string
	log          *zap.Logger
	checkTimeout time.Duration
}

// sqlDB is the part of *sql.DB the readiness check needs.
type sqlDB interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler builds the probes. redisClient and kafkaBrokers are
// optional and skipped when not configured.
func NewHealthHandler(db sqlDB, redisClient *redis.Client, kafkaBrokers []string, log *zap.Logger) *HealthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthHandler{
		db:           db,
		redis:        redisClient,
		kafkaBrokers: kafkaBrokers,
		log:          log,
		checkTimeout: 2 * time.Second,
	}
}

// Healthz - GET /health
func (h *HealthHandler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readyz - GET /ready
func (h *HealthHandler) Readyz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.checkTimeout)
	defer cancel()

	checks := map[string]string{}
	if err := h.db.PingContext(ctx); err != nil {
		checks["postgres"] = err.Error()
	}
	if h.redis != nil {
		if err := cache.Ping(ctx, h.redis); err != nil {
			checks["redis"] = err.Error()
		}
	}
	if len(h.kafkaBrokers) > 0 {
		if err := checkKafka(ctx, h.kafkaBrokers); err != nil {
			checks["kafka"] = err.Error()
		}
	}

	if len(checks) > 0 {
		h.log.Warn("readiness check failed", zap.Any("checks", checks))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "fail",
			"checks": checks,
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// checkKafka succeeds when any broker accepts a TCP connection.
func checkKafka(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	dialer := net.Dialer{Timeout: time.Second}
	var lastErr error
	for _, broker := range brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
	}
	return lastErr
}
