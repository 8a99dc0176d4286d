package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gcalbridge application
var rootCmd = &cobra.Command{
	Use:   "gcalbridge",
	Short: "HTTP bridge between OpenClaw agents and Google Calendar",
	Long: `gcalbridge links user accounts to Google Calendar via OAuth 2.0 and
serves aggregated calendar data over a small HTTP API.

Endpoints:
  - GET /auth/google      Start the OAuth consent flow for a user
  - GET /auth/callback    Complete the flow and store the refresh token
  - GET /calendar/list    List all calendars the user can access
  - GET /calendar/today   Events from all readable calendars for today
  - GET /calendar/week    Events from all readable calendars for this week`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gcalbridge version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
