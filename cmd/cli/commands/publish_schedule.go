package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/services"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// PublishScheduleCmd creates the publishSchedule command
func PublishScheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishSchedule <period-key>",
		Short: "Publish a saved schedule to the schedule sheet (e.g. 2025-08, 2025-W32, AY2025-2026)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			periodKey := args[0]
			app.Logger.Debug("publishSchedule command", zap.String("period", periodKey))

			if err := app.InitGoogleClients(); err != nil {
				return err
			}
			app.InitPublisher()

			published, err := services.PublishSchedule(
				app.Ctx,
				app.Database,
				app.SheetsClient,
				app.Notifier(),
				app.Cfg,
				app.Logger,
				periodKey,
				time.Now(),
			)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Schedule %s published to tab %q (%d rows)\n\n", periodKey, published.Title, len(published.Rows))
			return nil
		},
	}
}

// ExportScheduleCmd creates the exportSchedule command
func ExportScheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exportSchedule <period-key> <file>",
		Short: "Export a saved schedule document as JSON (use - for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			periodKey, path := args[0], args[1]
			app.Logger.Debug("exportSchedule command", zap.String("period", periodKey), zap.String("file", path))

			if path == "-" {
				_, err := services.ExportSchedule(app.Ctx, app.Database, app.Logger, periodKey, os.Stdout)
				return err
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}

			schedule, err := services.ExportSchedule(app.Ctx, app.Database, app.Logger, periodKey, f)
			if closeErr := f.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("failed to close export file: %w", closeErr)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Schedule %s exported to %s (%d assignments)\n\n", periodKey, path, len(schedule.Assignments))
			return nil
		},
	}
}

// ListSchedulesCmd creates the listSchedules command
func ListSchedulesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listSchedules",
		Short: "List the saved schedules, newest period first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			horizon, _ := cmd.Flags().GetString("horizon")

			switch model.Horizon(horizon) {
			case "", model.HorizonMonthly, model.HorizonWeekly, model.HorizonYearly:
			default:
				return fmt.Errorf("horizon must be monthly, weekly or yearly, got: %s", horizon)
			}

			schedules, err := services.ListSchedules(app.Ctx, app.Database, app.Logger, model.Horizon(horizon))
			if err != nil {
				return err
			}
			printSchedules(os.Stdout, schedules)
			return nil
		},
	}

	cmd.Flags().String("horizon", "", "Only list schedules of this horizon (monthly, weekly, yearly)")
	return cmd
}

func printSchedules(w io.Writer, schedules []db.Schedule) {
	fmt.Fprintf(w, "\nFound %d schedules:\n\n", len(schedules))
	for _, s := range schedules {
		published := ""
		if s.PublishedAt != "" {
			published = fmt.Sprintf(", published %s", s.PublishedAt)
		}
		fmt.Fprintf(w, "- %-12s %-8s %s to %s (%s, generated %s%s)\n",
			s.PeriodKey, s.Horizon, s.PeriodStart, s.PeriodEnd, s.Status, s.GeneratedAt, published)
	}
}
