package main

import (
	"fmt"

	"github.com/danmuck/klarity/internal/config"
	"github.com/danmuck/klarity/internal/logging"
	"github.com/danmuck/klarity/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
	LogLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "klarity",
		Short:         "klarity decodes dental quotes for patients and practitioners",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.LogLevel == "" {
				return nil
			}
			level, ok := logging.ParseLevel(opts.LogLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", opts.LogLevel)
			}
			log.Logger = observability.NewStderrLogger("klarity", level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to klarity.toml (defaults and env only when empty)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(opts),
		newSearchCommand(opts),
		newScanCommand(opts),
		newHashCodeCommand(),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.ConfigPath != "" {
		log.Debug().Str("path", o.ConfigPath).Msg("loaded config")
	}
	return cfg, nil
}
