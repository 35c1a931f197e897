// Command notifier evaluates calendar events against subscriber preferences
// and delivers push notifications.
//
// Usage:
//
//	notifier run                   one dispatch pass (cron-friendly)
//	notifier run --dry-run         decide and format, send nothing
//	notifier watch --interval 5m   fixed-interval loop + status server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fermicalendar/notifier/internal/calendar"
	"github.com/fermicalendar/notifier/internal/config"
	"github.com/fermicalendar/notifier/internal/db"
	"github.com/fermicalendar/notifier/internal/maintenance"
	"github.com/fermicalendar/notifier/internal/notifications"
	"github.com/fermicalendar/notifier/internal/status"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notifier",
		Short: "Calendar push notification dispatcher",
	}

	root.AddCommand(runCmd())
	root.AddCommand(watchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one dispatch pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				deps, err := buildDeps(cfg, pool, dryRun)
				if err != nil {
					return err
				}
				result := notifications.Run(ctx, deps, time.Now())
				if result.SetupFailed {
					return fmt.Errorf("dispatch pass aborted: %s", result.Summary())
				}
				if !dryRun {
					if err := maintenance.TrimAuditLog(ctx, pool.Pool, cfg.AuditTableName(), logger); err != nil {
						logger.Warn("Audit trim failed", "error", err)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Decide and format but send nothing")
	return cmd
}

// --------------------------------------------------------------------------
// watch command
// --------------------------------------------------------------------------

func watchCmd() *cobra.Command {
	var (
		interval time.Duration
		listen   string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run dispatch passes on a fixed interval with a status server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if interval == 0 {
					interval = cfg.WatchInterval
				}
				if listen == "" {
					listen = cfg.ListenAddr
				}

				deps, err := buildDeps(cfg, pool, false)
				if err != nil {
					return err
				}

				tracker := &status.Tracker{}
				srv := &http.Server{
					Addr:              listen,
					Handler:           status.NewRouter(pool, tracker),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					logger.Info("Status server listening", "addr", listen)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("Status server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()

				pass := func() {
					tracker.Update(notifications.Run(ctx, deps, time.Now()))
					if err := maintenance.TrimAuditLog(ctx, pool.Pool, cfg.AuditTableName(), logger); err != nil {
						logger.Warn("Audit trim failed", "error", err)
					}
				}

				logger.Info("Watch loop started", "interval", interval)
				pass()

				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						pass()
					case <-ctx.Done():
						logger.Info("Watch loop stopped")
						return nil
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pass interval (default from WATCH_INTERVAL)")
	cmd.Flags().StringVar(&listen, "listen", "", "Status server address (default from LISTEN_ADDR)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// buildDeps wires the pipeline collaborators onto the shared pool.
func buildDeps(cfg *config.Config, pool *db.Pool, dryRun bool) (*notifications.Deps, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	var audit notifications.AuditSink = notifications.NewDBAudit(pool.Pool, loc, logger)
	if dryRun {
		audit = notifications.NopAudit{}
	}

	var source notifications.EventSource = calendar.NewSheetSource(cfg.EventsCSVURL, cfg.FetchTimeout, logger)
	if cfg.EventsICSURL != "" {
		source = calendar.NewICSSource(cfg.EventsICSURL, loc, cfg.FetchTimeout, logger)
	}

	return &notifications.Deps{
		Source:   source,
		Store:    notifications.NewStore(pool.Pool),
		Delivery: notifications.NewPushSender(cfg.BackendURL, cfg.NotificationAPIKey, cfg.NotifyTimeout, logger),
		Audit:    audit,
		Location: loc,
		DryRun:   dryRun,
		Logger:   logger,
	}, nil
}

// withPool handles config loading, DB connection, and context cancellation.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.LogLevel == "debug" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
