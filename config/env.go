// Package config loads runtime settings from a .env file and the
// environment, with defaults suited to a single-terminal deployment.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBPath        string
	AllowedOrigin string
	Auth          AuthConfig
}

type AuthConfig struct {
	Secret          string
	TokenTTLMinutes int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ttl, _ := strconv.Atoi(getEnv("AUTH_TOKEN_TTL_MINUTES", "480"))

	return Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./ventas.db"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		Auth: AuthConfig{
			Secret:          getEnv("AUTH_SECRET", "dev-change-me"),
			TokenTTLMinutes: ttl,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
