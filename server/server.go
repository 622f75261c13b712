// Package server exposes the agent's JSON-over-HTTP control surface.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scrumlink/scrumlink/pkg/agent"
	"github.com/scrumlink/scrumlink/pkg/buildinfo"
	"github.com/scrumlink/scrumlink/pkg/logging"
)

// NewServer builds the HTTP server with all control-surface routes.
func NewServer(addr string, manager *agent.Manager, gatherer prometheus.Gatherer, log logging.Logger) *http.Server {
	h := &Handlers{
		manager: manager,
		log:     log.With(logging.F("component", "server")),
	}

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /start_agent", h.HandleStart)
	mux.HandleFunc("POST /stop_agent/{id}", h.HandleStop)
	mux.HandleFunc("GET /agent_status/{id}", h.HandleStatus)
	mux.HandleFunc("GET /sessions", h.HandleSessions)

	mux.HandleFunc("POST /api/transcript/chunk", h.HandleChunk)
	mux.HandleFunc("POST /api/transcript/final", h.HandleFinal)
	mux.HandleFunc("GET /api/session/{id}/history", h.HandleHistory)
	mux.HandleFunc("DELETE /api/session/{id}", h.HandleCleanup)
	mux.HandleFunc("POST /api/captions/{id}", h.HandleCaptions)

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /version", buildinfo.Handler("scrumlink-agent"))

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

// Run starts the server and blocks until SIGINT/SIGTERM or a listen
// error. On shutdown every active session is stopped so pending
// summaries still go out.
func Run(srv *http.Server, manager *agent.Manager, stopTimeout time.Duration, log logging.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("agent API listening", logging.F("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()

		manager.Shutdown(ctx)
		return srv.Shutdown(ctx)
	}
}
