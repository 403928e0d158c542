// ABOUTME: CLI commands for training sessions.
// ABOUTME: Supports list, done, undone, and notes subcommands.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/models"
)

var (
	sessionWeek  int
	sessionNotes string
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"s"},
	Short:   "Manage training sessions",
	Long: `View and update a plan's training sessions.

Sessions come from the server when reachable, or are generated locally
from the plan schedule when not. Either way they sync up later.

COMMANDS:

  list     List a plan's sessions with completion state
  done     Mark a session completed
  undone   Mark a session not completed
  notes    Update a session's notes

Session IDs accept unique prefixes, so the 8-character ID shown by
'session list' is enough.`,
}

var sessionListCmd = &cobra.Command{
	Use:     "list <plan-id>",
	Aliases: []string{"ls"},
	Short:   "List a plan's sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID := args[0]

		if _, err := eng.EnsureSessions(cmd.Context(), planID); err != nil {
			return fmt.Errorf("failed to initialize sessions: %w", err)
		}

		sessions := eng.Sessions(planID)
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		faint := color.New(color.Faint)
		green := color.New(color.FgGreen)
		for _, s := range sessions {
			if sessionWeek > 0 && s.Week != sessionWeek {
				continue
			}
			mark := "·"
			if s.Completed {
				mark = green.Sprint("✓")
			}
			notes := ""
			if s.Notes != "" {
				notes = faint.Sprintf(" (%s)", truncate(s.Notes, 40))
			}
			fmt.Printf("%s %s W%-2d %-9s %s%s\n",
				faint.Sprint(shortID(s.ID)),
				mark,
				s.Week,
				s.Day,
				s.Focus,
				notes)
		}
		return nil
	},
}

var sessionDoneCmd = &cobra.Command{
	Use:   "done <plan-id> <session-id>",
	Short: "Mark a session completed",
	Long: `Mark a session completed.

Examples:
  crux session done p1 3f2a91bc
  crux session done p1 3f2a91bc --notes "Crushed it"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := resolveSession(args[0], args[1])
		if err != nil {
			return err
		}

		if err := eng.MarkSessionCompleted(args[0], sess.ID, true, sessionNotes); err != nil {
			return fmt.Errorf("failed to mark session: %w", err)
		}

		color.Green("✓ Session done: W%d %s %s", sess.Week, sess.Day, sess.Focus)
		flushBestEffort(cmd)
		return nil
	},
}

var sessionUndoneCmd = &cobra.Command{
	Use:   "undone <plan-id> <session-id>",
	Short: "Mark a session not completed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := resolveSession(args[0], args[1])
		if err != nil {
			return err
		}

		if err := eng.MarkSessionCompleted(args[0], sess.ID, false, sess.Notes); err != nil {
			return fmt.Errorf("failed to mark session: %w", err)
		}

		fmt.Printf("Session reopened: W%d %s %s\n", sess.Week, sess.Day, sess.Focus)
		flushBestEffort(cmd)
		return nil
	},
}

var sessionNotesCmd = &cobra.Command{
	Use:   "notes <plan-id> <session-id> <notes>",
	Short: "Update a session's notes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := resolveSession(args[0], args[1])
		if err != nil {
			return err
		}

		if err := eng.UpdateSessionNotes(args[0], sess.ID, args[2]); err != nil {
			return fmt.Errorf("failed to update notes: %w", err)
		}

		color.Green("✓ Notes updated")
		flushBestEffort(cmd)
		return nil
	},
}

// resolveSession finds one session by ID or unique ID prefix.
func resolveSession(planID, idOrPrefix string) (*models.SessionRecord, error) {
	var match *models.SessionRecord
	for _, s := range eng.Sessions(planID) {
		if s.ID == idOrPrefix {
			found := s
			return &found, nil
		}
		if len(idOrPrefix) >= 4 && len(s.ID) >= len(idOrPrefix) && s.ID[:len(idOrPrefix)] == idOrPrefix {
			if match != nil {
				return nil, fmt.Errorf("ambiguous session id: %s", idOrPrefix)
			}
			found := s
			match = &found
		}
	}
	if match == nil {
		return nil, fmt.Errorf("session not found: %s", idOrPrefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	sessionListCmd.Flags().IntVarP(&sessionWeek, "week", "w", 0, "filter by week number")
	sessionDoneCmd.Flags().StringVarP(&sessionNotes, "notes", "n", "", "session notes")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionDoneCmd)
	sessionCmd.AddCommand(sessionUndoneCmd)
	sessionCmd.AddCommand(sessionNotesCmd)
	rootCmd.AddCommand(sessionCmd)
}
