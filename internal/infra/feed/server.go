package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server exposes the hub, Prometheus metrics and a health probe over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server. metrics may be nil.
func NewServer(addr string, hub *Hub, metrics http.Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go func() {
		slog.Info("Feed server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Feed server failed", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Feed server shutdown", slog.Any("error", err))
		}
	}()
}
