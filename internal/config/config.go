package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	// Backend selects the storage adapter: memory, file, or postgres.
	Backend string
	// StorePath is the JSON store location for the file backend.
	StorePath   string
	DatabaseURL string
	TablePrefix string
	// AuthSecret enables HS256 bearer auth when non-empty.
	AuthSecret  string
	CORSOrigins string
	LogDir      string
	// Debug keeps console logging verbose in dev/test
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		Backend:     getEnv("STORE_BACKEND", "file"),
		StorePath:   getEnv("STORE_PATH", "data/store.json"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: tablePrefix,
		AuthSecret:  getEnv("AUTH_SECRET", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		// Debug defaults to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
