package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger from the LOG_LEVEL environment
// variable. Production default is warn: join/leave traffic is chatty.
func Init() {
	level := slog.LevelWarn

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
