package config

import (
	"os"
	"strconv"
	"time"

	"secureauth-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr string

	// Credential store backend: memory, file, redis or postgres.
	StoreDriver   string
	StoreFilePath string
	RedisAddr     string
	RedisPass     string
	PostgresDSN   string

	// JWT
	JWT jwt.Config

	// Relying party / device identity for biometric ceremonies.
	RPID           string
	RPName         string
	DeviceUA       string
	DevicePlatform string

	// Simulated backend
	BackendLatency time.Duration
	CallTimeout    time.Duration

	// Audit
	AuditRetention int
	GeoIPPath      string
}

// Load reads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		StoreDriver:   getEnv("STORE_DRIVER", "memory"),
		StoreFilePath: getEnv("STORE_FILE_PATH", "./data/credential_store.json"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:     getEnv("REDIS_PASS", ""),
		PostgresDSN:   getEnv("DATABASE_URL", ""),

		JWT: jwt.Config{
			Secret:   getEnv("JWT_SECRET", "dev-only-secret-change-me"),
			Issuer:   getEnv("JWT_ISSUER", "secureauth-pro"),
			Audience: getEnv("JWT_AUDIENCE", "secureauth-users"),
			TTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
		},

		RPID:           getEnv("RP_ID", "localhost"),
		RPName:         getEnv("RP_NAME", "SecureAuth Pro"),
		DeviceUA:       getEnv("DEVICE_USER_AGENT", "secureauth-service"),
		DevicePlatform: getEnv("DEVICE_PLATFORM", "server"),

		BackendLatency: getEnvDuration("BACKEND_LATENCY", 150*time.Millisecond),
		CallTimeout:    getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),

		AuditRetention: getEnvInt("AUDIT_RETENTION", 100),
		GeoIPPath:      getEnv("GEOIP_DB_PATH", ""),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
