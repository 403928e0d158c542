// ABOUTME: CLI commands for exercise completions.
// ABOUTME: Supports done, undo, list, edit, and delete subcommands.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/idem"
	"github.com/harperreed/crux/internal/models"
)

var (
	exerciseNotes string
	exerciseDate  string
)

var exerciseCmd = &cobra.Command{
	Use:     "exercise",
	Aliases: []string{"ex", "e"},
	Short:   "Log exercise completions",
	Long: `Log which exercises you completed within a session.

Completing every exercise scheduled for a session marks the whole
session done automatically; un-marking one reopens it.

COMMANDS:

  done     Record an exercise as completed
  undo     Remove all completions of an exercise in a session
  list     List a session's logged completions
  edit     Change a completion's date or notes
  delete   Remove a single completion by ID

The same exercise can be logged more than once in a session (extra
sets, repeated circuits); each log is kept separately.`,
}

var exerciseDoneCmd = &cobra.Command{
	Use:   "done <plan-id> <session-id> <title>",
	Short: "Record an exercise as completed",
	Long: `Record an exercise as completed within a session.

Examples:
  crux exercise done p1 3f2a91bc "Fingerboard Hangs"
  crux exercise done p1 3f2a91bc "Core Circuit" --notes "extra set"
  crux exercise done p1 3f2a91bc "4x4 Boulders" --date 2026-08-20`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, title := args[0], args[2]
		sess, err := resolveSession(planID, args[1])
		if err != nil {
			return err
		}

		completedOn := time.Now()
		if exerciseDate != "" {
			t, err := time.Parse("2006-01-02", exerciseDate)
			if err != nil {
				return fmt.Errorf("invalid date format: %s (use YYYY-MM-DD)", exerciseDate)
			}
			completedOn = t
		}

		key := idem.Key(planID, sess.ID, title, time.Now())
		rec, err := eng.RecordExerciseCompletion(planID, sess.ID, "", title, key, exerciseNotes, completedOn)
		if err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}

		color.Green("✓ %s", title)
		fmt.Printf("  ID: %s\n", shortID(rec.ID))
		flushBestEffort(cmd)
		return nil
	},
}

var exerciseUndoCmd = &cobra.Command{
	Use:   "undo <plan-id> <session-id> <title>",
	Short: "Remove all completions of an exercise",
	Long: `Remove every completion record for an exercise title within a session.

If the session had been auto-completed, it is reopened.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, title := args[0], args[2]
		sess, err := resolveSession(planID, args[1])
		if err != nil {
			return err
		}

		if err := eng.MarkIncomplete(planID, sess.ID, title); err != nil {
			return fmt.Errorf("failed to un-mark exercise: %w", err)
		}

		fmt.Printf("Removed completions of %s\n", title)
		flushBestEffort(cmd)
		return nil
	},
}

var exerciseListCmd = &cobra.Command{
	Use:     "list <plan-id> [session-id]",
	Aliases: []string{"ls"},
	Short:   "List logged completions",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID := args[0]

		var sessionID string
		if len(args) == 2 {
			sess, err := resolveSession(planID, args[1])
			if err != nil {
				return err
			}
			sessionID = sess.ID
		}

		recs := eng.Exercises(planID)
		shown := 0
		faint := color.New(color.Faint)
		for _, r := range recs {
			if sessionID != "" && r.SessionID != sessionID {
				continue
			}
			shown++
			notes := ""
			if r.Notes != "" {
				notes = faint.Sprintf(" (%s)", truncate(r.Notes, 30))
			}
			fmt.Printf("%s %s %s [%s]%s\n",
				faint.Sprint(shortID(r.ID)),
				faint.Sprint(r.CompletedOn.Format("2006-01-02")),
				r.Title,
				syncStateLabel(r),
				notes)
		}
		if shown == 0 {
			fmt.Println("No completions logged.")
		}
		return nil
	},
}

var exerciseEditCmd = &cobra.Command{
	Use:   "edit <plan-id> <entry-id>",
	Short: "Change a completion's date or notes",
	Long: `Edit a logged completion in place.

Examples:
  crux exercise edit p1 8c41d7aa --date 2026-08-20
  crux exercise edit p1 8c41d7aa --notes "two extra sets"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID := args[0]
		rec, err := resolveExercise(planID, args[1])
		if err != nil {
			return err
		}

		completedOn := rec.CompletedOn
		if exerciseDate != "" {
			t, err := time.Parse("2006-01-02", exerciseDate)
			if err != nil {
				return fmt.Errorf("invalid date format: %s (use YYYY-MM-DD)", exerciseDate)
			}
			completedOn = t
		}
		notes := rec.Notes
		if cmd.Flags().Changed("notes") {
			notes = exerciseNotes
		}

		if err := eng.UpdateExerciseEntry(planID, rec.ID, completedOn, notes); err != nil {
			return fmt.Errorf("failed to edit completion: %w", err)
		}

		color.Green("✓ Updated %s", rec.Title)
		flushBestEffort(cmd)
		return nil
	},
}

var exerciseDeleteCmd = &cobra.Command{
	Use:   "delete <plan-id> <entry-id>",
	Short: "Remove a single completion",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID := args[0]
		rec, err := resolveExercise(planID, args[1])
		if err != nil {
			return err
		}

		if err := eng.DeleteExerciseEntry(planID, rec.ID); err != nil {
			return fmt.Errorf("failed to delete completion: %w", err)
		}

		fmt.Printf("Deleted %s\n", rec.Title)
		flushBestEffort(cmd)
		return nil
	},
}

// resolveExercise finds one completion by ID or unique ID prefix.
func resolveExercise(planID, idOrPrefix string) (*models.ExerciseCompletion, error) {
	var match *models.ExerciseCompletion
	for _, r := range eng.Exercises(planID) {
		if r.ID == idOrPrefix {
			found := r
			return &found, nil
		}
		if len(idOrPrefix) >= 4 && len(r.ID) >= len(idOrPrefix) && r.ID[:len(idOrPrefix)] == idOrPrefix {
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry id: %s", idOrPrefix)
			}
			found := r
			match = &found
		}
	}
	if match == nil {
		return nil, fmt.Errorf("completion not found: %s", idOrPrefix)
	}
	return match, nil
}

func syncStateLabel(r models.ExerciseCompletion) string {
	switch r.SyncState {
	case models.SyncSynced:
		return "synced"
	case models.SyncFailed:
		return "sync failed"
	default:
		return "pending"
	}
}

func init() {
	exerciseDoneCmd.Flags().StringVarP(&exerciseNotes, "notes", "n", "", "completion notes")
	exerciseDoneCmd.Flags().StringVar(&exerciseDate, "date", "", "date performed (YYYY-MM-DD)")
	exerciseEditCmd.Flags().StringVarP(&exerciseNotes, "notes", "n", "", "replacement notes")
	exerciseEditCmd.Flags().StringVar(&exerciseDate, "date", "", "replacement date (YYYY-MM-DD)")

	exerciseCmd.AddCommand(exerciseDoneCmd)
	exerciseCmd.AddCommand(exerciseUndoCmd)
	exerciseCmd.AddCommand(exerciseListCmd)
	exerciseCmd.AddCommand(exerciseEditCmd)
	exerciseCmd.AddCommand(exerciseDeleteCmd)
	rootCmd.AddCommand(exerciseCmd)
}
