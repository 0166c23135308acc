package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zzfadi/CodexBar-sub002/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "codexbar-usage "+version.String())
		},
	}
}
