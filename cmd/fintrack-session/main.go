// Command fintrack-session drives a finance tracker session from the terminal: sign in,
// inspect the stored session, refresh it and send authenticated requests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := newApp()

	rootCmd := &cobra.Command{
		Use:   "fintrack-session",
		Short: "Manage the finance tracker session from the terminal",
		Long: `fintrack-session signs in to the finance tracker backend and keeps the
resulting token pair in a credential store (a local file by default, or Redis).

Settings come from flags, FINTRACK_* environment variables and an optional
config file, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}

	app.bindFlags(rootCmd)

	rootCmd.AddCommand(
		loginCmd(app),
		registerCmd(app),
		callbackCmd(app),
		logoutCmd(app),
		statusCmd(app),
		refreshCmd(app),
		requestCmd(app),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fintrack-session %s (%s)\n", version, commit)
		},
	}
}
