package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	outputJSON bool
	startWatch bool
)

// StartCmd asks the agent to join a meeting.
var StartCmd = &cobra.Command{
	Use:   "start <meeting-url>",
	Short: "Start an agent session for a meeting",
	Long: `Start an agent session for a Google Meet meeting.

The agent joins the meeting, captures live captions, and produces a
summary when the session is stopped.

Examples:
  scrumlink start https://meet.google.com/abc-defg-hij
  scrumlink start https://meet.google.com/abc-defg-hij --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

// StopCmd ends a session and prints the summary.
var StopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a session and generate its summary",
	Long: `Stop a running session. The agent flushes any pending captions,
generates the meeting summary, and delivers it through the configured
notification channel.

Examples:
  scrumlink stop 3f2a1b7c-94d0-4c6e-a1b2-33c4d5e6f708`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

// StatusCmd shows the current state of one session.
var StatusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show the current state of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

// SessionsCmd lists all sessions the agent knows about.
var SessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List all sessions",
	RunE:  runSessions,
}

func init() {
	StartCmd.Flags().BoolVar(&startWatch, "watch", false, "follow the session status after starting")
	for _, c := range []*cobra.Command{StartCmd, StopCmd, StatusCmd, SessionsCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := newClient(cfg).Start(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		if err := printJSON(snap); err != nil {
			return err
		}
	} else {
		fmt.Printf("Agent started for %s\n", snap.MeetingURL)
		fmt.Printf("Session: %s\n", snap.ID)
		fmt.Printf("\nFollow it with: scrumlink watch %s\n", snap.ID)
	}

	if startWatch {
		return runWatch(cmd, []string{snap.ID})
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := newClient(cfg).Stop(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(snap)
	}

	printSnapshot(snap)
	if snap.Summary != nil {
		fmt.Println()
		fmt.Println(snap.Summary.Report(snap.ID))
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := newClient(cfg).Status(cmdContext(cmd), args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(snap)
	}
	printSnapshot(snap)
	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	list, err := newClient(cfg).Sessions(cmdContext(cmd))
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(list)
	}

	if list.Count == 0 {
		fmt.Println("No sessions")
		return nil
	}
	for _, snap := range list.Sessions {
		fmt.Printf("%s  %-18s  chunks=%d  questions=%d/%d\n",
			snap.ID, snap.Status, snap.ChunkCount, snap.QuestionsAsked, snap.QuestionQuota)
	}
	return nil
}
