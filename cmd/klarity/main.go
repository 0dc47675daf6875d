package main

import (
	"context"
	"os"

	"github.com/danmuck/klarity/internal/observability"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("klarity")
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
