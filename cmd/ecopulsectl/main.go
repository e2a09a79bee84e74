package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecopulse/internal/app"
	"ecopulse/internal/config"
	"ecopulse/internal/identity"
	"ecopulse/internal/logging"
	"ecopulse/internal/scheduler"
	"ecopulse/internal/storage"
	"ecopulse/internal/workflows"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
)

var (
	cfg      config.Config
	maxUsers int
)

var rootCmd = &cobra.Command{
	Use:           "ecopulsectl",
	Short:         "EcoPulse operations: migrations, batch jobs and schedules",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load(".env")
		cfg = config.Load()
		logging.Setup(cfg.LogLevel)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		applied, err := db.Migrate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
		return nil
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Start a batch workflow on the Temporal worker",
}

var triggerDailyCmd = &cobra.Command{
	Use:   "daily-tips",
	Short: "Start the daily copilot tips workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLauncher(func(l *workflows.Launcher) error {
			id, err := l.StartDailyTips(cmd.Context(), workflows.DailyTipsInput{MaxUsers: maxUsers})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var triggerImpactCmd = &cobra.Command{
	Use:   "global-impact",
	Short: "Start the global impact refresh workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLauncher(func(l *workflows.Launcher) error {
			id, err := l.StartGlobalImpact(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var runDailyCmd = &cobra.Command{
	Use:   "run-daily-tips",
	Short: "Run the daily copilot tips batch in this process, without Temporal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		out, err := a.Service.RunDailyTips(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Start batch workflows on their cron schedules until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withLauncher(func(l *workflows.Launcher) error {
			s := scheduler.New(l)
			if err := s.Add(ctx, cfg.DailyTipsCron, cfg.GlobalImpactCron); err != nil {
				return err
			}
			s.Start(ctx)
			for i, next := range s.NextRuns() {
				slog.Info("next run", "job", i, "at", next)
			}
			<-ctx.Done()
			s.Stop()
			return nil
		})
	},
}

var (
	tokenEmail string
	tokenName  string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Sign a local access token with ECOPULSE_JWT_SECRET for development",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("ECOPULSE_JWT_SECRET is not set")
		}
		tok, err := identity.NewJWTVerifier(cfg.JWTSecret).Sign(
			identity.User{ID: args[0], Email: tokenEmail, Name: tokenName},
			jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func withLauncher(fn func(*workflows.Launcher) error) error {
	c, err := tclient.Dial(tclient.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		return fmt.Errorf("dial temporal: %w", err)
	}
	defer c.Close()
	return fn(workflows.NewLauncher(c, cfg.TemporalTaskQueue))
}

func init() {
	triggerDailyCmd.Flags().IntVar(&maxUsers, "max-users", 0, "limit the run to the first N profiles (0 = all)")
	triggerCmd.AddCommand(triggerDailyCmd, triggerImpactCmd)

	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name stored in user_metadata")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(migrateCmd, triggerCmd, runDailyCmd, scheduleCmd, tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
