// ABOUTME: CLI commands for sign-in and sign-out.
// ABOUTME: Stores server, identity, and credentials in the config file.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <server-url> <identity>",
	Short: "Sign in to a training server",
	Long: `Sign in to a training server and store credentials locally.

Paste the access and refresh tokens issued by the server when prompted
(or pipe them on stdin, one per line). Everything logged before sign-in
stays local under the previous identity.

Example:
  crux login https://train.example.com you@example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, identity := args[0], args[1]

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Access token: ")
		access, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read access token: %w", err)
		}
		fmt.Print("Refresh token: ")
		refresh, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read refresh token: %w", err)
		}

		cfg.ServerURL = serverURL
		cfg.Identity = identity
		cfg.AccessToken = strings.TrimSpace(access)
		cfg.RefreshToken = strings.TrimSpace(refresh)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		if err := st.SwitchUser(identity); err != nil {
			return fmt.Errorf("switch local store: %w", err)
		}

		color.Green("✓ Signed in as %s", identity)
		fmt.Println("Pending changes will sync on the next command.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear local account data",
	Long: `Sign out of the training server.

Credentials are removed from the config and the identity's local
records are deleted, queues included. Run 'crux sync now' first if
anything is still waiting to upload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity := cfg.GetIdentity()

		if err := st.ClearUser(identity); err != nil {
			return fmt.Errorf("clear local data: %w", err)
		}

		cfg.Identity = ""
		cfg.AccessToken = ""
		cfg.RefreshToken = ""
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		color.Green("✓ Signed out")
		fmt.Printf("Local data for %s deleted.\n", identity)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
