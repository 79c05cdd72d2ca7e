package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	MinIO    MinIOConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Comments CommentsConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Env  string
	Port string
	URL  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the postgres connection string for the configured database.
func (d DatabaseConfig) DSN() string {
	return d.dsnFor(d.Name)
}

// MaintenanceDSN points at the postgres maintenance database, used to create Name.
func (d DatabaseConfig) MaintenanceDSN() string {
	return d.dsnFor("postgres")
}

func (d DatabaseConfig) dsnFor(name string) string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a cache should be wired at all.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type KafkaConfig struct {
	Brokers       []string
	ActivityTopic string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type MinIOConfig struct {
	Endpoint    string
	PresignHost string // Host to use in presigned URLs (for browser access)
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
}

func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" && m.SecretKey != "" }

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

type CommentsConfig struct {
	// AdminEmail is the reserved author email that marks official replies.
	AdminEmail        string
	AdminName         string
	AdminPasswordHash string
	PreviewLength     int
	ExportURLExpiry   time.Duration
	// ActivityRetention bounds the activity feed; zero keeps everything.
	ActivityRetention time.Duration
}

type LoggingConfig struct {
	Level string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
			URL:  getEnv("APP_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "softiel"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "softiel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_COMMENT_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			ActivityTopic: getEnv("KAFKA_ACTIVITY_TOPIC", "comment.activity"),
		},
		MinIO: MinIOConfig{
			Endpoint:    getEnv("MINIO_ENDPOINT", ""),
			PresignHost: getEnv("MINIO_PRESIGN_HOST", ""),
			AccessKey:   getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:   getEnv("MINIO_SECRET_KEY", ""),
			Bucket:      getEnv("MINIO_BUCKET", "softiel-exports"),
			UseSSL:      getEnvBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
			AccessExpiry: getEnvDuration("JWT_ACCESS_EXPIRY", 2*time.Hour),
		},
		CORS: CORSConfig{
			Origins: func() []string {
				var normalized []string
				for _, o := range splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")) {
					normalized = append(normalized, strings.TrimSuffix(o, "/"))
				}
				return normalized
			}(),
		},
		Comments: CommentsConfig{
			AdminEmail:        getEnv("COMMENT_ADMIN_EMAIL", "admin@softiel.com"),
			AdminName:         getEnv("COMMENT_ADMIN_NAME", "Softiel"),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			PreviewLength:     getEnvInt("COMMENT_PREVIEW_LENGTH", 50),
			ExportURLExpiry:   getEnvDuration("COMMENT_EXPORT_URL_EXPIRY", 15*time.Minute),
			ActivityRetention: getEnvDuration("ACTIVITY_RETENTION", 30*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	// Validate critical configuration
	if cfg.App.Env == "production" {
		if cfg.JWT.AccessSecret == "" {
			return nil, errors.New("JWT secret must be configured in production environment")
		}
		if cfg.Comments.AdminPasswordHash == "" {
			return nil, errors.New("ADMIN_PASSWORD_HASH must be configured in production environment")
		}
	}
	if cfg.JWT.AccessSecret == "" {
		cfg.JWT.AccessSecret = "softiel-dev-secret"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
