package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zzfadi/CodexBar-sub002/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	var logFile string
	var logCloser io.Closer

	root := cobra.Command{
		Use:           "codexbar-usage",
		Short:         "Daily token and cost reports from local Codex and Claude Code logs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if logFile == "" {
				logFile = cfg.LogFile
			}
			logCloser = setupLogging(logFile)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "write debug logs to this file (rotated)")
	root.PersistentFlags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "scan cache directory")

	root.AddCommand(newDailyCommand(&cfg))
	root.AddCommand(newWatchCommand(&cfg))
	root.AddCommand(newExportCommand(&cfg))
	root.AddCommand(newHistoryCommand(&cfg))
	root.AddCommand(newDetectCommand(&cfg))
	root.AddCommand(newConfigCommand(&cfg))
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging discards log output unless CODEXBAR_DEBUG is set or a log
// file is requested.
func setupLogging(logFile string) io.Closer {
	switch {
	case logFile != "":
		w := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28,
		}
		log.SetOutput(w)
		return w
	case os.Getenv("CODEXBAR_DEBUG") != "":
		log.SetOutput(os.Stderr)
	default:
		log.SetOutput(io.Discard)
	}
	return nil
}
