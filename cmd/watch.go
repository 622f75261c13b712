package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/credentials"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/notify"
	"github.com/scrumlink/scrumlink/pkg/poller"
)

// WatchCmd follows a session's status and relays transitions to the user.
var WatchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a session and relay status updates",
	Long: `Follow a running session and relay its status transitions as
user-facing messages.

Each lifecycle transition is announced once. Updates go to the configured
Telegram chat when a bot token and chat id are set, to the console
otherwise. The watch ends when the session reaches a terminal state or
the agent stops answering.

Examples:
  scrumlink watch 3f2a1b7c-94d0-4c6e-a1b2-33c4d5e6f708
  scrumlink watch 3f2a1b7c-94d0-4c6e-a1b2-33c4d5e6f708 --server http://agent-host:8001`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	fetcher := newClient(cfg)
	notifier := buildStatusNotifier(cfg, log)

	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := poller.New(fetcher, notifier, cfg.Poller, log)
	if err := p.Run(ctx, args[0]); err != nil {
		return fmt.Errorf("watching session: %w", err)
	}
	return nil
}

// buildStatusNotifier mirrors the serve-side notifier choice for the
// client-side poller.
func buildStatusNotifier(cfg *config.Config, log logging.Logger) poller.Notifier {
	store, err := credentials.NewStore()
	if err == nil {
		if token, tokenErr := store.ActiveTelegramToken(); tokenErr == nil && cfg.Telegram.ChatID != "" {
			return notify.NewTelegram(token, cfg.Telegram.ChatID, log)
		}
	}
	return notify.NewConsole(os.Stdout)
}
