package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	DBURL       string
	StoreDriver string

	JWTSecret     string
	JWTTTL        time.Duration
	JWTCookieTTL  time.Duration
	ResetTokenTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	MailHost     string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string

	PublicBaseURL string
	OTLPEndpoint  string
	MaxBodyBytes  int64

	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminUsername string

	SweepInterval time.Duration
}

// Load reads the process environment. A .env file in the working
// directory is merged in first when present; real env vars win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		DBURL:       buildDBURL(),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:        getEnvDuration("JWT_TTL", 90*24*time.Hour),
		JWTCookieTTL:  getEnvDuration("JWT_COOKIE_TTL", 90*24*time.Hour),
		ResetTokenTTL: getEnvDuration("RESET_TOKEN_TTL", 10*time.Minute),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Second),

		MailHost:     os.Getenv("MAIL_HOST"),
		MailPort:     getEnvInt("MAIL_PORT", 587),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "noreply@blog.local"),

		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MaxBodyBytes:  int64(getEnvInt("MAX_BODY_BYTES", 10<<10)),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
	}
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "blog")
	pass := getEnv("DB_PASSWORD", "blog")
	name := getEnv("DB_NAME", "blog")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env, using fallback", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil || d <= 0 {
			slog.Warn("invalid duration env, using fallback", "key", key, "value", v)
			return fallback
		}

		return d
	}
	return fallback
}
