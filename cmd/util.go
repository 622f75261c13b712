// Package cmd provides CLI commands for the scrumlink tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrumlink/scrumlink/client"
	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/session"
)

// loadConfig loads the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds a logger from config flags.
func newLogger(cfg *config.Config) logging.Logger {
	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.Level = logging.LevelDebug
	}
	logCfg.JSONFormat = cfg.LogJSON
	return logging.NewLogger(logCfg)
}

// newClient builds the agent API client for a command run.
func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.ServerAddress, &client.Options{
		RequestTimeout: cfg.StatusTimeout.Std(),
	})
}

// cmdContext returns the command's context, falling back to Background
// when the command was not run through Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printSnapshot renders a session snapshot in a short human form.
func printSnapshot(snap session.Snapshot) {
	fmt.Printf("Session:   %s\n", snap.ID)
	fmt.Printf("Meeting:   %s\n", snap.MeetingURL)
	fmt.Printf("Status:    %s\n", snap.Status)
	fmt.Printf("Chunks:    %d\n", snap.ChunkCount)
	fmt.Printf("Questions: %d/%d\n", snap.QuestionsAsked, snap.QuestionQuota)
	if snap.LastError != "" {
		fmt.Printf("Error:     %s\n", snap.LastError)
	}
	if len(snap.Participants) > 0 {
		fmt.Printf("Participants: %v\n", snap.Participants)
	}
}
