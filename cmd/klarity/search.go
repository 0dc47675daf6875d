package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/danmuck/klarity/internal/catalog"
	"github.com/spf13/cobra"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var format string
	var suggest bool
	var limit int
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search the CCAM act table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			var acts []catalog.Act
			if suggest {
				acts = cat.Suggest(term, limit)
			} else {
				acts = cat.Search(term)
			}
			return writeActs(cmd.OutOrStdout(), acts, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json or toml")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "editor lookup on code and patient label only")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultSuggestLimit, "suggestion cap with --suggest")
	return cmd
}

func writeActs(w io.Writer, acts []catalog.Act, format string) error {
	switch strings.ToLower(format) {
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tCATEGORY\tPATIENT LABEL\tAVG\tBR")
		for _, act := range acts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\n",
				act.Code, act.Category, act.LabelPatient, catalog.ReferencePrice(act), act.BaseRemboursement)
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(acts)
	case "toml":
		return catalog.WriteTable(w, acts)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
