package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/services"
)

// addGenerateFlags registers the flags shared by the generate commands
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Generate without saving to the database")
	cmd.Flags().Bool("force-commit", false, "Overwrite a schedule that was already published")
	cmd.Flags().String("seed", "", "Seed for the optimizer (defaults to rules.seed)")
}

// generateOptions reads the shared generate flags
func generateOptions(cmd *cobra.Command) (services.GenerateOptions, error) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	forceCommit, _ := cmd.Flags().GetBool("force-commit")
	seedFlag, _ := cmd.Flags().GetString("seed")

	seed, err := parseSeed(seedFlag)
	if err != nil {
		return services.GenerateOptions{}, err
	}

	return services.GenerateOptions{
		DryRun:      dryRun,
		ForceCommit: forceCommit,
		Seed:        seed,
	}, nil
}

func parseSeed(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	seed, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("seed must be an integer, got: %s", s)
	}
	return &seed, nil
}

func parseYearMonth(yearArg, monthArg string) (int, time.Month, error) {
	year, err := strconv.Atoi(yearArg)
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("year must be a positive integer, got: %s", yearArg)
	}
	month, err := strconv.Atoi(monthArg)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month must be between 1 and 12, got: %s", monthArg)
	}
	return year, time.Month(month), nil
}

// GenerateMonthlyCmd creates the generateMonthly command
func GenerateMonthlyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateMonthly <year> <month>",
		Short: "Generate the call schedule of a month",
		Long: `Generate the call schedule of a month from the roster and leave in the database.

With --months greater than 1, consecutive months are generated. They run concurrently
unless --chain is set, in which case each month consumes the carry-overs saved by the
previous one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseYearMonth(args[0], args[1])
			if err != nil {
				return err
			}
			opts, err := generateOptions(cmd)
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetInt("months")
			chain, _ := cmd.Flags().GetBool("chain")

			app.Logger.Debug("generateMonthly command",
				zap.Int("year", year),
				zap.Int("month", int(month)),
				zap.Int("months", count),
				zap.Bool("chain", chain))

			app.InitPublisher()

			if count <= 1 {
				result, err := services.GenerateMonthly(app.Ctx, app.Database, app.Notifier(), app.Cfg, app.Logger, year, month, opts)
				if err != nil {
					return err
				}
				printResult(os.Stdout, result)
				return nil
			}

			results, err := services.GenerateMonthlyRange(app.Ctx, app.Database, app.Notifier(), app.Cfg, app.Logger, year, month, count, chain, opts)
			if err != nil {
				return err
			}
			for _, result := range results {
				printResult(os.Stdout, result)
			}
			return nil
		},
	}

	addGenerateFlags(cmd)
	cmd.Flags().Int("months", 1, "Number of consecutive months to generate")
	cmd.Flags().Bool("chain", false, "Generate months one after another so carry-overs flow between them")

	return cmd
}

// GenerateWeeklyCmd creates the generateWeekly command
func GenerateWeeklyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateWeekly <week-start>",
		Short: "Generate the clinic and OR schedule of the week starting on a Sunday (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekStart, err := calendar.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("week-start must be a date: %w", err)
			}
			opts, err := generateOptions(cmd)
			if err != nil {
				return err
			}

			app.Logger.Debug("generateWeekly command", zap.String("week_start", args[0]))
			app.InitPublisher()

			result, err := services.GenerateWeekly(app.Ctx, app.Database, app.Notifier(), app.Cfg, app.Logger, weekStart, opts)
			if err != nil {
				return err
			}
			printResult(os.Stdout, result)
			return nil
		},
	}

	addGenerateFlags(cmd)
	return cmd
}

// GenerateYearlyCmd creates the generateYearly command
func GenerateYearlyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateYearly [academic-year-start]",
		Short: "Generate the rotation schedule of an academic year (defaults to academicYearStart)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var start time.Time
			if len(args) > 0 {
				var err error
				start, err = calendar.ParseDate(args[0])
				if err != nil {
					return fmt.Errorf("academic-year-start must be a date: %w", err)
				}
			}
			opts, err := generateOptions(cmd)
			if err != nil {
				return err
			}

			app.Logger.Debug("generateYearly command", zap.Time("academic_year_start", start))
			app.InitPublisher()

			result, err := services.GenerateYearly(app.Ctx, app.Database, app.Notifier(), app.Cfg, app.Logger, start, opts)
			if err != nil {
				return err
			}
			printResult(os.Stdout, result)
			return nil
		},
	}

	addGenerateFlags(cmd)
	return cmd
}

// printResult prints the summary of a generation run
func printResult(w io.Writer, result *services.GenerateResult) {
	s := result.Schedule

	status := "saved"
	if !result.Persisted {
		status = "not saved (dry run)"
	}

	fmt.Fprintf(w, "\n%s schedule %s %s\n\n", s.Horizon, s.PeriodKey, status)
	fmt.Fprintf(w, "Period:       %s to %s\n", calendar.DayKey(s.Period.Start), calendar.DayKey(s.Period.End))
	fmt.Fprintf(w, "Assignments:  %d\n", len(s.Assignments))
	fmt.Fprintf(w, "Coverage:     %.1f%% (%d of %d slots)\n", s.Summary.CoverageRate*100, s.Summary.FilledSlots, s.Summary.RequiredSlots)
	fmt.Fprintf(w, "Gini:         %.3f\n", s.Summary.Gini)
	fmt.Fprintf(w, "Violations:   %d hard, %d soft\n", s.Summary.HardViolations, s.Summary.SoftViolations)

	printViolations(w, s)
	fmt.Fprintln(w)
}

func printViolations(w io.Writer, s metrics.Schedule) {
	if len(s.Violations) == 0 {
		return
	}

	fmt.Fprintf(w, "\n")
	for _, v := range s.Violations {
		marker := "!"
		if v.Severity == model.SeverityHard {
			marker = "✗"
		}
		resident := v.ResidentID
		if resident == "" {
			resident = "-"
		}
		fmt.Fprintf(w, "  %s %s %-22s %-10s %s\n", marker, calendar.DayKey(v.Date), v.Rule, resident, v.Description)
	}
}
