// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server with the background sync loop active.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant
integration. The server communicates via stdin/stdout.

While the server runs, the background sync loop is active: pending
changes flush on reconnect and on a periodic timer.

CONFIGURATION:

  {
    "mcpServers": {
      "crux": {
        "command": "crux",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_plans            List imported training plans
  list_sessions         List a plan's sessions with completion state
  complete_exercise     Record an exercise completion
  uncomplete_exercise   Remove completions of an exercise
  complete_session      Mark a session done or not done
  training_status       Queue depths and last sync
  sync_now              Flush and reconcile immediately

AVAILABLE RESOURCES:

  crux://plans     Plans with completion progress
  crux://status    Sync queue depths and last sync
  crux://week      Last 7 days of completed training`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(eng, cat)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		if cfg.IsConfigured() && cfg.GetAutoSync() {
			monitor.Start(ctx)
			defer monitor.Stop()
			eng.Start(ctx)
			defer eng.Stop()
		}

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
