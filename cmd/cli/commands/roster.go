package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/services"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Database.RunMigrations(app.Ctx); err != nil {
				return err
			}
			fmt.Println("\n✓ Database is up to date")
			return nil
		},
	}
}

// SyncRosterCmd creates the syncRoster command
func SyncRosterCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncRoster",
		Short: "Copy residents and leave requests from the roster sheet into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			if err := app.InitGoogleClients(); err != nil {
				return err
			}

			result, err := services.SyncRoster(app.Ctx, app.Database, app.SheetsClient, app.Cfg, app.Logger, dryRun)
			if err != nil {
				return err
			}

			verb := "Synced"
			if dryRun {
				verb = "Read (dry run)"
			}
			fmt.Printf("\n✓ %s %d residents and %d leave requests\n", verb, len(result.Residents), len(result.Leave))
			if len(result.SkippedLeave) > 0 {
				fmt.Printf("⚠️  Skipped %d leave requests for unknown residents: %v\n", len(result.SkippedLeave), result.SkippedLeave)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Read the sheets without saving to the database")
	return cmd
}

// ListResidentsCmd creates the listResidents command
func ListResidentsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listResidents",
		Short: "List the residents stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			residents, err := services.ListResidents(app.Ctx, app.Database, app.Logger)
			if err != nil {
				return err
			}
			printResidents(os.Stdout, residents)
			return nil
		},
	}
}

func printResidents(w io.Writer, residents []model.Resident) {
	fmt.Fprintf(w, "\nFound %d residents:\n\n", len(residents))
	for _, r := range residents {
		var flags []string
		if r.IsChief {
			flags = append(flags, "chief")
		}
		if r.CallExempt {
			flags = append(flags, "call exempt")
		}
		if r.OnService {
			flags = append(flags, "on service")
		}

		extra := ""
		if r.Team != "" {
			extra = fmt.Sprintf(" [Team: %s]", r.Team)
		}
		if len(flags) > 0 {
			extra += fmt.Sprintf(" %v", flags)
		}

		fmt.Fprintf(w, "- PGY-%d %s (%s) - %s%s\n", r.PGY, r.FullName(), r.ID, r.Service, extra)
	}
}
