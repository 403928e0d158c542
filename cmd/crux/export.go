// ABOUTME: CLI command for exporting training data.
// ABOUTME: Dumps plans, sessions, and completions as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/models"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export training data as JSON",
	Long: `Export all local training data as JSON.

The export contains every imported plan with its schedule, plus the
session records and exercise completions logged against it. Suitable
for backup or moving to another machine.

EXAMPLES:

  crux export                   # Print to stdout
  crux export -o backup.json    # Save to file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plans, err := cat.ListPlans()
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}

		type planExport struct {
			Plan      *models.Plan                `json:"plan"`
			Schedule  []*models.ScheduledSession  `json:"schedule"`
			Sessions  []models.SessionRecord      `json:"sessions"`
			Exercises []models.ExerciseCompletion `json:"exercises"`
		}

		export := struct {
			ExportedAt time.Time    `json:"exported_at"`
			Identity   string       `json:"identity"`
			Plans      []planExport `json:"plans"`
		}{
			ExportedAt: time.Now(),
			Identity:   cfg.GetIdentity(),
		}

		for _, p := range plans {
			schedule, err := cat.Schedule(p.ID)
			if err != nil {
				return fmt.Errorf("failed to load schedule for %s: %w", p.ID, err)
			}
			export.Plans = append(export.Plans, planExport{
				Plan:      p,
				Schedule:  schedule,
				Sessions:  eng.Sessions(p.ID),
				Exercises: eng.Exercises(p.ID),
			})
		}

		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
