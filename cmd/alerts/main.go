// Command alerts is the deadline alert operations CLI.
//
// Usage:
//
//	deadline-alerts run
//	deadline-alerts run --date 2025-01-01 --workers 4
//	deadline-alerts migrate
//	deadline-alerts preferences get --user <uuid>
//	deadline-alerts preferences set --user <uuid> --days 14
//	deadline-alerts next-run
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/keralaseva/deadline-alerts/internal/config"
	"github.com/keralaseva/deadline-alerts/internal/db"
	"github.com/keralaseva/deadline-alerts/internal/notifications"
	"github.com/keralaseva/deadline-alerts/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "deadline-alerts",
		Short:        "Scholarship deadline alert CLI",
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(preferencesCmd())
	root.AddCommand(nextRunCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var (
		date    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the deadline alert job once and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if workers > 0 {
					cfg.AlertWorkers = workers
				}
				runner := notifications.NewRunner(notifications.Deps{
					Users:         st,
					Preferences:   st,
					Matcher:       st,
					Notifications: st,
				}, notifications.Options{
					Workers:     cfg.AlertWorkers,
					JobTimeout:  cfg.AlertJobTimeout,
					CallTimeout: cfg.AlertCallTimeout,
					Location:    cfg.Location(),
				}, logger)

				today := runner.Today()
				if date != "" {
					d, err := civil.ParseDate(date)
					if err != nil {
						return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
					}
					today = d
				}

				result := runner.RunAt(ctx, today)
				notifications.LogResult(logger, result)

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Run as if today were this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent user workers (default ALERT_WORKERS)")
	return cmd
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the alert preference and notification tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			start := time.Now()
			if err := db.Migrate(ctx, cfg); err != nil {
				return err
			}
			logger.Info("Schema applied", "duration", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// preferences command
// --------------------------------------------------------------------------

func preferencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Inspect or change a user's alert threshold",
	}
	cmd.AddCommand(preferencesGetCmd())
	cmd.AddCommand(preferencesSetCmd())
	return cmd
}

func preferencesGetCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user's alert threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUser(userID); err != nil {
				return err
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				pref, err := st.GetPreference(ctx, userID)
				switch {
				case errors.Is(err, store.ErrNotFound):
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t(default)\n", userID, notifications.DefaultAlertBeforeDays)
				case err != nil:
					return err
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", pref.UserID, pref.AlertBeforeDays)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id (uuid)")
	return cmd
}

func preferencesSetCmd() *cobra.Command {
	var (
		userID string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a user's alert threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUser(userID); err != nil {
				return err
			}
			if !notifications.ValidAlertDays(days) {
				return fmt.Errorf("--days must be between %d and %d", notifications.MinAlertBeforeDays, notifications.MaxAlertBeforeDays)
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if err := st.UpsertPreference(ctx, notifications.Preference{UserID: userID, AlertBeforeDays: days}); err != nil {
					return err
				}
				logger.Info("Alert preference saved", "user_id", userID, "alert_before_days", days)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id (uuid)")
	cmd.Flags().IntVar(&days, "days", notifications.DefaultAlertBeforeDays, "Days before the deadline to alert (1-90)")
	return cmd
}

func validateUser(id string) error {
	if id == "" {
		return fmt.Errorf("--user is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("--user must be a uuid: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// next-run command
// --------------------------------------------------------------------------

func nextRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-run",
		Short: "Print when the scheduler will next fire",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			hour, minute, err := config.ParseClock(cfg.AlertRunAt)
			if err != nil {
				return err
			}
			next := notifications.NextRun(time.Now(), hour, minute, cfg.Location())
			fmt.Fprintf(cmd.OutOrStdout(), "%s (in %s)\n",
				next.Format(time.RFC3339), time.Until(next).Round(time.Second))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithDB handles config loading, DB connection, and context cancellation.
func runWithDB(fn func(ctx context.Context, cfg *config.Config, st *store.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, store.New(pool.Pool))
}
