package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ladder_go/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	pprof := flag.Bool("pprof", false, "serve pprof on localhost:6060")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	if *pprof {
		go func() {
			// Localhost only for security
			slog.Info("🕵️ Pprof server started on localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Replay (single goroutine owns the engine)
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("❌ Replay failed", slog.Any("error", err))
		stop()
		bootstrap.Close()
		os.Exit(1)
	}

	m := bootstrap.Metrics.Snapshot()
	slog.Info("👋 Replay complete",
		slog.Uint64("quotes", m.QuotesApplied),
		slog.Uint64("trades", m.TradesApplied),
		slog.Uint64("reanchors", m.Reanchors),
		slog.Uint64("sink_errors", m.SinkErrors))
}
