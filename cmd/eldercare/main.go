package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tnikhil-24/ElderCare/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "eldercare",
		Short:         "ElderCare voice and text health companion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.ProfilePath, "profile", cfg.ProfilePath, "path to the user profile")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(newServeCommand(&cfg), newChatCommand(&cfg), newSetupCommand(&cfg))
	return root
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(level)})
	slog.SetDefault(slog.New(handler))
}

// setupConsoleLogging keeps logs on stderr, as text, out of the conversation.
func setupConsoleLogging(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(level)})
	slog.SetDefault(slog.New(handler))
}
