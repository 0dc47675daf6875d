package testlog

import (
	"fmt"
	"testing"

	"github.com/danmuck/klarity/internal/logging"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}

// Logf writes a debug trace line shared by package tests.
func Logf(format string, args ...any) {
	logging.ConfigureTests()
	log.Debug().Msg(fmt.Sprintf(format, args...))
}
