package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    string
	APIBaseURL    string
	SocketURL     string
	APIToken      string
	SelfUserID    string
	Environment   string
	FreshWindow   time.Duration
	CacheMaxAge   time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		APIBaseURL:    getEnv("API_BASE_URL", "https://api.minglr.app/v1"),
		SocketURL:     getEnv("WS_URL", "wss://api.minglr.app/v1/socket"),
		APIToken:      getEnv("API_TOKEN", ""),
		SelfUserID:    getEnv("SELF_USER_ID", ""),
		Environment:   getEnv("ENVIRONMENT", "development"),
		FreshWindow:   getEnvAsMinutes("FRESH_WINDOW_MINUTES", 10),
		CacheMaxAge:   getEnvAsMinutes("CACHE_MAX_AGE_MINUTES", 60),
		SweepInterval: getEnvAsMinutes("SWEEP_INTERVAL_MINUTES", 15),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsMinutes(key string, defaultValue int64) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil && intValue > 0 {
			return time.Duration(intValue) * time.Minute
		}
	}
	return time.Duration(defaultValue) * time.Minute
}
