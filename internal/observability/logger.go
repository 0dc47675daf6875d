package observability

import (
	"os"

	"github.com/danmuck/klarity/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger for a process and tags it with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// NewStderrLogger is the non-global variant used by one-shot CLI commands.
func NewStderrLogger(app string, level zerolog.Level) zerolog.Logger {
	return logging.New(os.Stderr, logging.Config{Level: level, Timestamp: false}).
		With().Str("app", app).Logger()
}
