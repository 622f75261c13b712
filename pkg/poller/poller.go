// Package poller implements the client-side status loop: it polls an
// agent session and relays status changes to a notification channel.
// Every status message goes out at most once per session, and a run of
// consecutive fetch failures ends the loop with a single connection-lost
// notice.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/scrumlink/scrumlink/config"
	"github.com/scrumlink/scrumlink/pkg/logging"
	"github.com/scrumlink/scrumlink/pkg/session"
)

// StatusFetcher reads a session's current snapshot. The HTTP client
// implements it.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, sessionID string) (session.Snapshot, error)
}

// Notifier receives the human-readable status lines.
type Notifier interface {
	SendStatus(ctx context.Context, text string) error
}

// ConnectionLostMessage is sent once when the agent stops answering.
const ConnectionLostMessage = "❌ Потеряно соединение с агентом. Попробуйте перезапустить созвон."

// questionMessageFormat wraps a clarifying question relayed from the agent.
const questionMessageFormat = "❓ Вопрос от агента: %s"

// stopHintFormat is shown once when the agent joins the call.
const stopHintFormat = "Агент в звонке. Вы можете завершить созвон: scrumlink stop %s"

// statusMessages maps statuses to user-facing lines. Statuses missing
// from the map pass silently.
var statusMessages = map[session.Status]string{
	session.StatusStarting:         "🟡 Агент запускает браузер...",
	session.StatusWaitingAdmission: "🟠 Агент ждет разрешения на вход...",
	session.StatusActive:           "🟢 Агент успешно присоединился к звонку!",
	session.StatusError:            "🔴 Ошибка у агента",
	session.StatusStopped:          "⚪ Агент завершил работу",
}

// Poller watches one session until it reaches a terminal state.
type Poller struct {
	fetcher  StatusFetcher
	notifier Notifier
	cfg      config.PollerConfig
	log      logging.Logger
}

// New creates a Poller.
func New(fetcher StatusFetcher, notifier Notifier, cfg config.PollerConfig, log logging.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

// Run polls until the session terminates, the context is canceled, or the
// failure budget runs out. Each distinct status is announced exactly once,
// each new clarifying question is relayed once, and the stop hint is shown
// once when the agent joins the call.
func (p *Poller) Run(ctx context.Context, sessionID string) error {
	log := p.log.With(logging.F("session_id", sessionID))
	emitted := make(map[session.Status]bool)
	lastQuestion := ""
	stopHintShown := false
	failures := 0

	for {
		snap, err := p.fetch(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			failures++
			log.Warn("status fetch failed",
				logging.Err(err),
				logging.F("consecutive_failures", failures))

			if failures >= p.cfg.MaxFailures {
				p.notify(ctx, log, ConnectionLostMessage)
				return fmt.Errorf("agent unreachable after %d attempts: %w", failures, err)
			}

			if err := sleep(ctx, p.cfg.ErrorBackoff.Std()); err != nil {
				return err
			}
			continue
		}
		failures = 0

		if message, known := statusMessages[snap.Status]; known && !emitted[snap.Status] {
			emitted[snap.Status] = true
			p.notify(ctx, log, message)
		}

		if snap.LastQuestion != "" && snap.LastQuestion != lastQuestion {
			lastQuestion = snap.LastQuestion
			p.notify(ctx, log, fmt.Sprintf(questionMessageFormat, snap.LastQuestion))
		}

		if snap.Status == session.StatusActive && !stopHintShown {
			stopHintShown = true
			p.notify(ctx, log, fmt.Sprintf(stopHintFormat, sessionID))
		}

		if snap.Status.Terminal() {
			log.Info("session terminated", logging.F("status", snap.Status.String()))
			return nil
		}

		if err := sleep(ctx, p.cfg.Interval.Std()); err != nil {
			return err
		}
	}
}

func (p *Poller) fetch(ctx context.Context, sessionID string) (session.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout.Std())
	defer cancel()
	return p.fetcher.FetchStatus(ctx, sessionID)
}

// notify sends a status line. Delivery failure is logged and swallowed;
// polling matters more than any single message.
func (p *Poller) notify(ctx context.Context, log logging.Logger, text string) {
	if err := p.notifier.SendStatus(ctx, text); err != nil {
		log.Error("status notification failed", logging.Err(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
