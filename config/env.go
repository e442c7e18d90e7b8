package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP    HTTPConfig
	Redis   RedisConfig
	DB      DBConfig
	Auth    AuthConfig
	Billing BillingConfig
	Shop    ShopConfig
}

type HTTPConfig struct {
	Port        string
	CORSOrigins []string
	RateLimit   string
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

type BillingConfig struct {
	InvoicePrefix      string
	InvoiceMaxAttempts int
}

type ShopConfig struct {
	Timezone    string
	ProfilePath string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	maxAttempts, err := strconv.Atoi(getEnv("INVOICE_MAX_ATTEMPTS", "3"))
	if err != nil || maxAttempts < 1 {
		maxAttempts = 3
	}
	tokenHours, err := strconv.Atoi(getEnv("JWT_TTL_HOURS", "24"))
	if err != nil || tokenHours < 1 {
		tokenHours = 24
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Port:        getEnv("HTTP_PORT", "8080"),
			CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
			RateLimit:   getEnv("RATE_LIMIT", "120-M"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=mgm_billing port=5432 sslmode=disable"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      time.Duration(tokenHours) * time.Hour,
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Billing: BillingConfig{
			InvoicePrefix:      getEnv("INVOICE_PREFIX", "MGM_"),
			InvoiceMaxAttempts: maxAttempts,
		},
		Shop: ShopConfig{
			Timezone:    getEnv("SHOP_TIMEZONE", "Asia/Kolkata"),
			ProfilePath: getEnv("SHOP_PROFILE_PATH", "config/shop.toml"),
		},
	}

	if len(cfg.Auth.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be set and at least 32 characters long")
	}

	return cfg
}

// Location resolves the shop timezone, falling back to UTC.
func (c ShopConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown SHOP_TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
