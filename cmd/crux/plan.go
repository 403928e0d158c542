// ABOUTME: CLI commands for managing training plans.
// ABOUTME: Supports import, list, show, and delete subcommands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/models"
)

var planCmd = &cobra.Command{
	Use:     "plan",
	Aliases: []string{"p"},
	Short:   "Manage training plans",
	Long: `Manage multi-week training plans.

A plan is a JSON file describing weeks of scheduled sessions, each with
its exercises:

  {
    "plan": { "id": "bould-12", "name": "12-Week Bouldering Cycle", "weeks": 12 },
    "schedule": [
      {
        "week": 1, "day": "Tuesday", "focus": "Strength", "phase": "Base",
        "exercises": [
          { "title": "Fingerboard Hangs", "detail": "6x10s half crimp" },
          { "title": "Core Circuit" }
        ]
      }
    ]
  }

COMMANDS:

  import   Load a plan definition from a JSON file
  list     List imported plans
  show     Show a plan's schedule
  delete   Remove a plan and its local records`,
}

var planImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a plan from JSON",
	Long: `Import a training plan definition from a JSON file.

Re-importing the same plan replaces its schedule without duplicating
sessions you have already logged against.

Example:
  crux plan import cycle.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		var def models.PlanDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("failed to parse plan: %w", err)
		}
		if def.Plan.ID == "" || def.Plan.Name == "" {
			return fmt.Errorf("plan must have an id and a name")
		}

		if err := cat.ImportPlan(&def); err != nil {
			return fmt.Errorf("failed to import plan: %w", err)
		}

		color.Green("✓ Imported %s", def.Plan.Name)
		fmt.Printf("  ID: %s\n", def.Plan.ID)
		fmt.Printf("  Scheduled sessions: %d\n", len(def.Schedule))
		return nil
	},
}

var planListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List imported plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		plans, err := cat.ListPlans()
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}

		if len(plans) == 0 {
			fmt.Println("No plans imported. Use 'crux plan import <file>'.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, p := range plans {
			done, total := 0, 0
			for _, rec := range eng.Sessions(p.ID) {
				total++
				if rec.Completed {
					done++
				}
			}
			progress := ""
			if total > 0 {
				progress = fmt.Sprintf("%d/%d sessions done", done, total)
			}
			fmt.Printf("%s %s (%d weeks) %s\n",
				faint.Sprint(p.ID),
				p.Name,
				p.Weeks,
				faint.Sprint(progress))
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a plan's schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cat.GetPlan(args[0])
		if err != nil {
			return fmt.Errorf("plan not found: %s", args[0])
		}

		schedule, err := cat.Schedule(p.ID)
		if err != nil {
			return fmt.Errorf("failed to load schedule: %w", err)
		}

		fmt.Printf("%s (%d weeks)\n", p.Name, p.Weeks)

		faint := color.New(color.Faint)
		week := 0
		for _, sess := range schedule {
			if sess.Week != week {
				week = sess.Week
				fmt.Printf("\nWeek %d\n", week)
			}
			fmt.Printf("  %s: %s\n", sess.Day, sess.Focus)
			for _, ex := range sess.Exercises {
				detail := ""
				if ex.Detail != "" {
					detail = faint.Sprintf(" (%s)", ex.Detail)
				}
				fmt.Printf("    - %s%s\n", ex.Title, detail)
			}
		}
		return nil
	},
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete <plan-id>",
	Short: "Delete a plan and its local records",
	Long: `Delete a plan from the catalog along with its local session records
and exercise completions. Remote data is not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID := args[0]

		if err := cat.DeletePlan(planID); err != nil {
			return fmt.Errorf("failed to delete plan: %w", err)
		}
		if err := st.RemovePlan(planID); err != nil {
			return fmt.Errorf("failed to remove local records: %w", err)
		}

		color.Green("✓ Deleted plan %s", planID)
		return nil
	},
}

func init() {
	planCmd.AddCommand(planImportCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planDeleteCmd)
	rootCmd.AddCommand(planCmd)
}
