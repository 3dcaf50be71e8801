// Package server wires the gateway's routes and middleware into one
// http.Handler and manages the listener lifecycle.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/buddyvoice/buddy/pkg/gateway/config"
	"github.com/buddyvoice/buddy/pkg/gateway/handlers"
	"github.com/buddyvoice/buddy/pkg/gateway/live/session"
	"github.com/buddyvoice/buddy/pkg/gateway/metrics"
	"github.com/buddyvoice/buddy/pkg/gateway/mw"
	"github.com/buddyvoice/buddy/pkg/skills/weather"
	"github.com/buddyvoice/buddy/pkg/skills/websearch"
	"github.com/buddyvoice/buddy/pkg/voice/tts"
)

type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *session.Registry
	streamer *session.Streamer
	metrics  *metrics.Metrics
	httpSrv  *http.Server
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New()
	reg := session.NewRegistry(logger, cfg.Secrets, cfg.HistoryCap)
	responder := session.NewResponder(
		reg, logger, m,
		weather.NewClient(),
		websearch.NewClient(),
		session.GeminiChat{Model: cfg.GeminiModel},
	)
	streamer := session.NewStreamer(reg, responder, logger, m, session.StreamerConfig{
		SampleRate: cfg.SampleRate,
		Workers:    cfg.ReplyWorkers,
	})

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		streamer: streamer,
		metrics:  m,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", handlers.Health())
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /ws/audio/{session_id}", handlers.NewAudio(s.streamer, s.registry, s.logger))
	mux.Handle("POST /v1/tts", handlers.NewTTS(
		tts.NewClient(s.cfg.Secrets["MURF_API_KEY"]), s.logger))

	if dir := s.cfg.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
			index := filepath.Join(dir, "index.html")
			mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
				http.ServeFile(w, r, index)
			})
		}
	}

	return mw.Chain(mux,
		mw.RequestID(),
		mw.Recover(s.logger),
		mw.AccessLog(s.logger),
		mw.CORS(),
	)
}

// ListenAndServe blocks until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.cfg.ListenAddr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops accepting connections, tears down live sessions, and
// waits for in-flight replies.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	for _, id := range s.registry.IDs() {
		s.streamer.StopStreaming(id)
	}
	done := make(chan struct{})
	go func() {
		s.streamer.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline hit with replies in flight")
	}
	return err
}
