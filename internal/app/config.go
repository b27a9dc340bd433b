package app

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/cortex-backend/internal/clients/redis"
	"github.com/yungbote/cortex-backend/internal/data/db"
	"github.com/yungbote/cortex-backend/internal/platform/envutil"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
	"github.com/yungbote/cortex-backend/internal/platform/openai"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	DB     db.Config
	Redis  redis.Config
	OpenAI openai.Config

	JWTSecretKey   string
	AccessTokenTTL time.Duration
	AdminEmails    []string

	WebhookSecret string
	CORSOrigins   []string

	RateLimitPerMinute int
	FeedbackGate       time.Duration
	DailyTasksEnabled  bool
	DailyConcurrency   int
}

// LoadEnvFiles loads .env files when present. Missing files are not an error.
func LoadEnvFiles(log *logger.Logger) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded", "error", err)
	}
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8000"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
		DB: db.Config{
			Type:     envutil.String("DB_TYPE", "postgres"),
			Host:     envutil.String("DB_HOST", "localhost"),
			Port:     envutil.String("DB_PORT", "5432"),
			User:     envutil.String("DB_USER", "postgres"),
			Password: envutil.String("DB_PASSWORD", ""),
			Name:     envutil.String("DB_NAME", "cortex"),
			SSLMode:  envutil.String("DB_SSLMODE", "disable"),
		},
		Redis: redis.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		OpenAI: openai.Config{
			APIKey:     envutil.String("OPENAI_API_KEY", ""),
			Model:      envutil.String("OPENAI_MODEL", openai.DefaultModel),
			BaseURL:    envutil.String("OPENAI_BASE_URL", ""),
			Timeout:    envutil.Duration("OPENAI_TIMEOUT", 120*time.Second),
			MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 2),
		},
		JWTSecretKey:       envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:     envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		AdminEmails:        envutil.List("ADMIN_EMAILS", nil),
		WebhookSecret:      envutil.String("WEBHOOK_SECRET", ""),
		CORSOrigins:        envutil.List("CORS_ORIGINS", nil),
		RateLimitPerMinute: envutil.Int("RATE_LIMIT_PER_MINUTE", 120),
		FeedbackGate:       envutil.Duration("FEEDBACK_GATE", 5*time.Minute),
		DailyTasksEnabled:  envutil.Bool("DAILY_TASKS_ENABLED", false),
		DailyConcurrency:   envutil.Int("DAILY_TASKS_CONCURRENCY", 4),
	}

	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET not set, billing webhooks will not be verified")
	}
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set, evaluation and generation will use fallbacks")
	}
	return cfg
}
