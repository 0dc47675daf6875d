package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/danmuck/klarity/internal/auth"
	"github.com/spf13/cobra"
)

func newHashCodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-code [code]",
		Short: "Print the bcrypt hash to set as auth.access_code_hash",
		Long:  "Print the bcrypt hash to set as auth.access_code_hash. Reads the code from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) == 1 {
				code = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			hash, err := auth.HashCode(code)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
