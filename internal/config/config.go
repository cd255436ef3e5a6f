package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath        string
	ServerPort    string
	LogLevel      string
	LocalStateDir string

	// ContentAPIURL is the base URL of the hosted article store. Empty
	// disables the startup sync and serves whatever is already local.
	ContentAPIURL string
	ContentAPIKey string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "mtmath.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LocalStateDir: getEnv("LOCAL_STATE_DIR", "."),
		ContentAPIURL: getEnv("CONTENT_API_URL", ""),
		ContentAPIKey: getEnv("CONTENT_API_KEY", ""),
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("local_state_dir", cfg.LocalStateDir).
		Bool("content_sync", cfg.ContentAPIURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
