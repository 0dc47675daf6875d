package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danmuck/klarity/internal/vision"
	"github.com/spf13/cobra"
)

func newScanCommand(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "scan <image-file>",
		Short: "Read a quote image with the configured vision provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			img, err := vision.DecodeImage(base64.StdEncoding.EncodeToString(data))
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			timeout, err := cfg.VisionTimeout()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			analyzer, err := newAnalyzer(ctx, cfg)
			if err != nil {
				return err
			}
			analyzed, err := analyzer.Analyze(ctx, img)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if raw {
				return enc.Encode(map[string]any{"acts": analyzed})
			}
			return enc.Encode(map[string]any{"acts": vision.MapToCatalog(analyzed, cat)})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the model reading without catalog mapping")
	return cmd
}
