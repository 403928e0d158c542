// ABOUTME: CLI commands for sync control.
// ABOUTME: Supports now and status subcommands.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/netmon"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync training data with the server",
	Long: `Push pending changes and pull server state.

Every mutation is committed locally first and queued; sync delivers the
queues and reconciles session lists with the server. A change that
cannot be delivered stays queued and is retried automatically.

COMMANDS:

  now      Flush queues and reconcile immediately
  status   Show queue depths, connectivity, and last successful sync

Changes flush automatically after each command when auto-sync is on.`,
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Flush queues and reconcile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.IsConfigured() {
			color.Yellow("Not signed in. Run 'crux login <server> <identity>' first.")
			return nil
		}

		monitor.Check(cmd.Context())
		if !monitor.Online() {
			color.Yellow("Server unreachable; changes stay queued.")
			return nil
		}

		report := eng.Sync(cmd.Context())
		if report.AuthError {
			color.Red("✗ Sync blocked: sign in again with 'crux login'")
			return nil
		}

		color.Green("✓ Sync complete")
		fmt.Printf("  Delivered: %d\n", report.Delivered)
		if report.Remaining > 0 {
			fmt.Printf("  Still queued: %d\n", report.Remaining)
		}
		if report.Dropped > 0 {
			color.Yellow("  Dropped: %d (see 'crux exercise list' for failures)", report.Dropped)
		}
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.IsConfigured() {
			color.Yellow("Not signed in; working fully offline.")
		} else {
			fmt.Println("Server:", cfg.ServerURL)
			fmt.Println("Identity:", cfg.GetIdentity())

			switch monitor.Check(cmd.Context()) {
			case netmon.StatusConnected:
				color.Green("✓ Server reachable")
			default:
				color.Yellow("⚠ Server unreachable")
			}
		}

		sessions, exercises, deletes, err := eng.Pending()
		if err != nil {
			return fmt.Errorf("failed to read queues: %w", err)
		}
		fmt.Println()
		fmt.Printf("Pending session upserts:  %d\n", sessions)
		fmt.Printf("Pending exercise upserts: %d\n", exercises)
		fmt.Printf("Pending deletions:        %d\n", deletes)

		if last, err := eng.LastSync(); err == nil && !last.IsZero() {
			fmt.Printf("Last full sync: %s\n", last.Format(time.RFC1123))
		} else {
			fmt.Println("Last full sync: never")
		}
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
