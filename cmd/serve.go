package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/credentials"
	"github.com/scrumlink/scrumlink/pkg/agent"
	"github.com/scrumlink/scrumlink/pkg/archive"
	"github.com/scrumlink/scrumlink/pkg/intelligence"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/notify"
	"github.com/scrumlink/scrumlink/pkg/observability"
	"github.com/scrumlink/scrumlink/server"
)

var serveListenAddr string

// ServeCmd runs the agent service.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the meeting agent service",
	Long: `Run the meeting agent service.

The service owns all meeting sessions: it ingests caption events and
transcript chunks, cleans them, decides when to interject with a
clarifying question, and produces the final meeting summary. It exposes
the JSON-over-HTTP control API used by the other scrumlink commands.

The intelligence service API key must be configured first:

  scrumlink auth set

Examples:
  scrumlink serve
  scrumlink serve --listen 127.0.0.1:9001
  SCRUMLINK_REDIS_ADDR=localhost:6379 scrumlink serve`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().StringVar(&serveListenAddr, "listen", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListenAddr != "" {
		cfg.ListenAddress = serveListenAddr
	}

	log := newLogger(cfg)

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}

	apiKey, err := store.ActiveIntelligenceKey()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return fmt.Errorf("no intelligence API key configured; run 'scrumlink auth set' or set SCRUMLINK_INTELLIGENCE_KEY")
		}
		return fmt.Errorf("reading credentials: %w", err)
	}

	provider := intelligence.NewOpenRouterProvider(intelligence.OpenRouterConfig{
		BaseURL: cfg.Intelligence.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.Intelligence.Model,
	})
	defer provider.Close()

	reg := prometheus.NewRegistry()
	metrics := observability.NewAgentMetrics(reg)

	intel := intelligence.NewService(provider, cfg.Intelligence, metrics, log)
	notifier := buildNotifier(cfg, store, log)

	arch, err := archive.New(cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("connecting session archive: %w", err)
	}
	defer arch.Close()

	manager := agent.NewManager(cfg, agent.Deps{
		Cleaner:   intel,
		Gater:     intel,
		Generator: intel,
		Notifier:  notifier,
		Archive:   arch,
		Metrics:   metrics,
		Logger:    log,
	})

	srv := server.NewServer(cfg.ListenAddress, manager, reg, log)
	return server.Run(srv, manager, cfg.StopTimeout.Std(), log)
}

// buildNotifier picks Telegram when a bot token and chat id are
// configured, console output otherwise.
func buildNotifier(cfg *config.Config, store *credentials.Store, log logging.Logger) agent.Notifier {
	token, err := store.ActiveTelegramToken()
	if err != nil || cfg.Telegram.ChatID == "" {
		log.Info("telegram not configured, using console notifications")
		return notify.NewConsole(os.Stdout)
	}
	return notify.NewTelegram(token, cfg.Telegram.ChatID, log)
}
