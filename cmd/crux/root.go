// ABOUTME: Root Cobra command for crux CLI.
// ABOUTME: Opens store, catalog, and engine in PersistentPre/PostRunE.
package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/crux/internal/api"
	"github.com/harperreed/crux/internal/catalog"
	"github.com/harperreed/crux/internal/config"
	"github.com/harperreed/crux/internal/engine"
	"github.com/harperreed/crux/internal/netmon"
	"github.com/harperreed/crux/internal/store"
)

var (
	cfg     *config.Config
	st      *store.Store
	cat     *catalog.DB
	client  *api.Client
	monitor *netmon.Monitor
	eng     *engine.Engine
	logger  = log.Default()
)

// offlineConnectivity is used before sign-in: the engine runs fully
// local and queues everything.
type offlineConnectivity struct{}

func (offlineConnectivity) Online() bool        { return false }
func (offlineConnectivity) OnConnect(fn func()) {}

var rootCmd = &cobra.Command{
	Use:   "crux",
	Short: "Offline-first climbing training tracker",
	Long: `Crux tracks multi-week climbing training plans.

Every change lands locally first and syncs to the server in the
background. No network, no problem: train, log, and sync when you're
back in range.

QUICK START:

  $ crux plan import cycle.json           # Import a training plan
  $ crux session list p1                  # See the plan's sessions
  $ crux exercise done p1 <session> "Fingerboard Hangs"
  $ crux session done p1 <session> --notes "Felt strong"
  $ crux sync status                      # What's still waiting to sync

SYNC:

  $ crux login https://train.example.com you@example.com
  $ crux sync now        # Push pending changes, pull server state
  $ crux sync status     # Queue depths and last successful sync

  Completing every exercise in a session marks the session done
  automatically. Changes made offline flush when connectivity returns.

MCP INTEGRATION:

  Run 'crux mcp' to start the Model Context Protocol server for use with
  MCP-compatible AI assistants:

  {
    "mcpServers": {
      "crux": { "command": "crux", "args": ["mcp"] }
    }
  }

DATA STORAGE:

  Local state lives under ~/.local/share/crux. Config (server, identity,
  credentials) is at ~/.config/crux/config.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		dataDir := cfg.GetDataDir()
		st, err = store.Open(filepath.Join(dataDir, "state"), cfg.GetIdentity(), logger)
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}

		cat, err = catalog.Open(filepath.Join(dataDir, "catalog.db"))
		if err != nil {
			return fmt.Errorf("open plan catalog: %w", err)
		}

		var net engine.Connectivity = offlineConnectivity{}
		if cfg.IsConfigured() {
			client = api.NewClient(cfg.ServerURL, config.NewTokens())
			monitor = netmon.New(client.Healthy, time.Minute, logger)
			net = monitor
		}

		eng = engine.New(st, cat, client, net, engine.Options{
			FlushInterval: cfg.GetFlushInterval(),
			Logger:        logger,
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cat != nil {
			_ = cat.Close()
		}
		if st != nil {
			return st.Close()
		}
		return nil
	},
}

// flushBestEffort pushes pending changes after a mutating command.
// Failures are absorbed; the queues hold everything for later.
func flushBestEffort(cmd *cobra.Command) {
	if !cfg.IsConfigured() || !cfg.GetAutoSync() {
		return
	}
	monitor.Check(cmd.Context())
	eng.Flush(cmd.Context())
}
