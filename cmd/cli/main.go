package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/cmd/cli/commands"
	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/postgres"
	"github.com/jakechorley/residency-scheduler/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Ctx = ctx

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Residency Scheduler CLI - Generate and publish resident duty schedules",
		Long: `A CLI tool for generating monthly call schedules, weekly clinic and OR schedules,
and yearly rotation schedules for a surgical residency program.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.SyncRosterCmd(app))
	rootCmd.AddCommand(commands.ListResidentsCmd(app))
	rootCmd.AddCommand(commands.GenerateMonthlyCmd(app))
	rootCmd.AddCommand(commands.GenerateWeeklyCmd(app))
	rootCmd.AddCommand(commands.GenerateYearlyCmd(app))
	rootCmd.AddCommand(commands.PublishScheduleCmd(app))
	rootCmd.AddCommand(commands.ExportScheduleCmd(app))
	rootCmd.AddCommand(commands.ListSchedulesCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and database. Google and queue clients are
// created by the commands that need them.
func initApp() error {
	var err error
	app.Env = env

	// Initialize logger
	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	// Connect to the database
	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database
	app.Logger.Info("Database initialized successfully")

	return nil
}
