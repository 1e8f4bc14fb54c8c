package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/week"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the rota tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			if err := database.EnsureSchema(app.ctx, app.db); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	})
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Roll the rota over to the new week now",
		Long:  "Archive the current week and promote next week's staged shifts. Running it twice in the same week is a no-op.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			result, err := app.migration.Run(app.ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			if result.AlreadyApplied {
				fmt.Printf("\nWeek of %s was already rolled over. Nothing written.\n\n", result.NextWeekStart)
				return nil
			}
			fmt.Printf("\nRollover complete\n\n")
			fmt.Printf("Archived week:     %s\n", result.CurrentWeekStart)
			fmt.Printf("Promoted week:     %s\n", result.NextWeekStart)
			fmt.Printf("Staff:             %d\n", result.StaffCount)
			fmt.Printf("Staged rows used:  %d\n", result.NextWeekDataCount)
			if result.ArchiveFailures+result.PromoteFailures > 0 {
				fmt.Printf("Archive failures:  %d\n", result.ArchiveFailures)
				fmt.Printf("Promote failures:  %d\n", result.PromoteFailures)
			}
			fmt.Println()
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current week and what is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			status, err := app.migration.Status(app.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nCurrent week:  %s (week %d)\n", status.CurrentWeekStart, app.resolver.Number(status.CurrentWeekStart.Time))
			fmt.Printf("Next week:     %s (%d staged rows)\n", status.NextWeekStart, status.NextWeekDataCount)
			fmt.Printf("Staff:         %d\n", status.StaffCount)
			if status.LastRun != nil {
				fmt.Printf("Last rollover: %s at %s\n", status.LastRun.PromotedWeek, status.LastRun.RanAt.Format("2006-01-02 15:04"))
			} else {
				fmt.Println("Last rollover: never")
			}

			if len(status.StoredWeeks) > 0 {
				fmt.Printf("\nStored weeks:\n")
				for _, w := range status.StoredWeeks {
					fmt.Printf("  %s  %d rows\n", w.WeekStartingDate, w.Records)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

func purgeOrphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-orphans",
		Short: "Delete weekly rows whose staff member no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}
			n, err := app.schedule.PurgeOrphans(app.ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d orphaned rows.\n", n)
			return nil
		},
	}
}

func showWeekCmd() *cobra.Command {
	var (
		terminal int
		weekArg  string
		drafts   bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a terminal's rota for one week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}

			weekStart := app.resolver.Current()
			if weekArg != "current" {
				parsed, err := week.ParseKey(weekArg)
				if err != nil {
					return err
				}
				weekStart = parsed
			}

			viewer := models.RoleStaff
			if drafts {
				viewer = models.RoleManager
			}
			view, err := app.schedule.View(app.ctx, terminal, weekStart, viewer)
			if err != nil {
				return err
			}

			fmt.Printf("\nTerminal %d, week %d (%s)\n\n", view.Terminal, view.WeekNumber, view.WeekStart)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "NAME\tROLE\t%s\tHOURS\n", strings.Join(view.DayLabels[:], "\t"))
			for _, row := range view.Staff {
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\n", row.Name, row.Role, strings.Join(row.Shifts[:], "\t"), row.Hours)
			}
			fmt.Fprintf(w, "TOTAL\t\t%s\t%g\n", strings.Repeat("\t", 6), view.TotalHours)
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&terminal, "terminal", "t", 1, "Terminal number")
	cmd.Flags().StringVarP(&weekArg, "week", "w", "current", "Any date in the week (YYYY-MM-DD) or \"current\"")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "Show unpublished drafts")
	return cmd
}

func userCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an account. The password is read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connect(); err != nil {
				return err
			}

			fmt.Fprint(os.Stderr, "Password: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			password, err := reader.ReadString('\n')
			if err != nil && password == "" {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")

			profile, err := app.auth.Register(app.ctx, args[0], password, models.Role(role))
			if err != nil {
				return err
			}
			fmt.Printf("Created %s account %s (%s)\n", profile.Role, profile.Email, profile.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&role, "role", "r", string(models.RoleStaff), "Account role: manager or staff")
	cmd.AddCommand(add)
	return cmd
}
