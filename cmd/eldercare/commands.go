package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tnikhil-24/ElderCare/internal/api"
	"github.com/tnikhil-24/ElderCare/internal/config"
	"github.com/tnikhil-24/ElderCare/internal/console"
	"github.com/tnikhil-24/ElderCare/internal/dispatch"
	"github.com/tnikhil-24/ElderCare/internal/engine"
	"github.com/tnikhil-24/ElderCare/internal/profile"
	"github.com/tnikhil-24/ElderCare/internal/store"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cfg.LogLevel)
			slog.Info("eldercare starting",
				"port", cfg.Port,
				"profile", cfg.ProfilePath,
				"reminder_tick", cfg.ReminderTick,
				"dialogue_timeout", cfg.DialogueTimeout,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			queue := engine.NewQueue(0)
			a, err := buildApp(ctx, cfg, store.SourceText, queue)
			if err != nil {
				return err
			}
			defer a.close()

			srv := api.NewServer(a.engine, a.store, queue, a.registry, cfg.Port)
			a.start(ctx)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})

			slog.Info("eldercare ready", "port", cfg.Port)
			err = g.Wait()
			stop()
			a.wait()
			slog.Info("eldercare stopped")
			return err
		},
	}
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP API port")
	return cmd
}

func newChatCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupConsoleLogging(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			history := ""
			if home, err := os.UserHomeDir(); err == nil {
				history = filepath.Join(home, ".eldercare_history")
			}
			con, err := console.New(history)
			if err != nil {
				return err
			}

			a, err := buildApp(ctx, cfg, store.SourceText, con)
			if err != nil {
				return err
			}
			defer a.close()
			a.start(ctx)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer stop()
				return con.Run(gctx, a.engine)
			})
			err = g.Wait()
			a.wait()
			return err
		},
	}
}

func newSetupCommand(cfg *config.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write the user profile and show the reminder schedule it implies",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupConsoleLogging(cfg.LogLevel)
			out := cmd.OutOrStdout()

			_, statErr := os.Stat(cfg.ProfilePath)
			exists := statErr == nil
			if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
				return statErr
			}

			p, err := profile.Load(cfg.ProfilePath)
			if err != nil {
				return err
			}
			if force {
				p = profile.Default()
			}
			if !exists || force {
				if err := p.Save(cfg.ProfilePath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote profile to %s. Edit it to add your medications and contacts.\n", cfg.ProfilePath)
			} else {
				fmt.Fprintf(out, "Using existing profile at %s.\n", cfg.ProfilePath)
			}

			drafts, err := p.SeedReminders()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nReminder schedule for %s:\n", p.Name)
			for _, d := range drafts {
				fmt.Fprintf(out, "  %-8s %-12s %s\n", dispatch.SpokenTime(*d.Rule.Anchor), d.Subject, d.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing profile with the default one")
	return cmd
}
