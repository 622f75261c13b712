// Package main provides the scrumlink CLI entry point.
// scrumlink is an AI meeting agent: it captures live meeting captions,
// asks clarifying questions, and delivers a structured summary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrumlink/scrumlink/cmd"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scrumlink",
	Short: "AI scrum master for your meetings",
	Long: `scrumlink runs an AI agent inside your meetings.

The agent captures live captions, cleans up speech-to-text noise, asks a
bounded number of clarifying questions while the meeting runs, and posts
a structured summary (participants, decisions, action items) when it
ends.

COMMON WORKFLOWS:
  Run the agent:     scrumlink serve
  Join a meeting:    scrumlink start https://meet.google.com/abc-defg-hij
  Follow a session:  scrumlink watch <session-id>
  End a meeting:     scrumlink stop <session-id>
  Configure secrets: scrumlink auth set

CONFIGURATION:
  Config file: ~/.scrumlink/config.yaml (override dir with SCRUMLINK_CONFIG_DIR)
  Environment: SCRUMLINK_* variables take precedence over the file`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(cmd.ServeCmd)
	rootCmd.AddCommand(cmd.WatchCmd)
	rootCmd.AddCommand(cmd.StartCmd)
	rootCmd.AddCommand(cmd.StopCmd)
	rootCmd.AddCommand(cmd.StatusCmd)
	rootCmd.AddCommand(cmd.SessionsCmd)
	rootCmd.AddCommand(cmd.AuthCmd)
	rootCmd.AddCommand(cmd.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
