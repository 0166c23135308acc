package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
	"github.com/zzfadi/CodexBar-sub002/internal/detect"
)

func newDetectCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List installed tools and the log directories that will be scanned",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tBINARY\tROOT\tSTATE\tLOGS")
			for _, tool := range detect.AutoDetect(cfg.ScanOptions()) {
				bin := tool.BinaryPath
				if bin == "" {
					bin = "-"
				}
				if len(tool.Roots) == 0 {
					fmt.Fprintf(w, "%s\t%s\t-\tunresolved\t0\n", tool.Provider, bin)
					continue
				}
				for _, r := range tool.Roots {
					state := "missing"
					if r.Exists {
						state = "ok"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", tool.Provider, bin, r.Path, state, r.Logs)
				}
			}
			if err := w.Flush(); err != nil {
				fmt.Fprintf(os.Stderr, "flush: %v\n", err)
			}
			return nil
		},
	}
}
