package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"ladder_go/internal/domain"
	"ladder_go/internal/infra"
	"ladder_go/internal/infra/feed"
	"ladder_go/internal/infra/storage"
	"ladder_go/internal/ladder"
	"ladder_go/internal/playback"
	"ladder_go/internal/render"

	"github.com/google/uuid"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Logger  *slog.Logger
	Store   *storage.Store
	Metrics *infra.Metrics
	Hub     *feed.Hub
	Server  *feed.Server
	RunID   string

	// Source defaults to Store; tests may swap it.
	Source domain.EventSource
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, feed).
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.RunID = uuid.NewString()
	b.Logger = infra.NewLogger(cfg).With(slog.String("run_id", b.RunID))
	slog.SetDefault(b.Logger)
	slog.Info("🚀 Bootstrapping ladder replay...",
		slog.String("version", cfg.App.Version),
		slog.String("symbol", cfg.Replay.Symbol),
		slog.String("date", cfg.Replay.Date))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStore(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	b.Store = store
	b.Source = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.DBPath))

	// 4. Metrics + Feed
	b.Metrics = infra.GlobalMetrics
	if cfg.Feed.Enabled {
		b.Hub = feed.NewHub(b.RunID)
		b.Server = feed.NewServer(cfg.Feed.Addr, b.Hub, infra.MetricsHandler(b.Metrics.Registry()))
		slog.Info("✅ Feed hub ready", slog.String("addr", cfg.Feed.Addr))
	}

	return nil
}

// LoadReplay fetches both streams for the configured window.
// It returns domain.ErrEmptyReplay when the window holds nothing.
func (b *Bootstrap) LoadReplay(ctx context.Context) ([]domain.Quote, []domain.Trade, error) {
	window, err := b.Config.Window()
	if err != nil {
		return nil, nil, err
	}

	quotes, err := b.Source.LoadQuotes(ctx, window)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load quotes: %w", err)
	}
	trades, err := b.Source.LoadTrades(ctx, window)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trades: %w", err)
	}

	slog.Info("📦 Replay data loaded",
		slog.String("symbol", window.Symbol),
		slog.Time("start", window.Start),
		slog.Time("end", window.End),
		slog.Int("quotes", len(quotes)),
		slog.Int("trades", len(trades)))

	if len(quotes) == 0 && len(trades) == 0 {
		return nil, nil, domain.ErrEmptyReplay
	}
	return quotes, trades, nil
}

// Sinks builds the snapshot consumers enabled in the config.
func (b *Bootstrap) Sinks() ([]playback.Sink, error) {
	var sinks []playback.Sink
	if b.Config.Terminal.Enabled {
		sinks = append(sinks, render.NewTerminal(os.Stdout, true))
	}
	if b.Config.Frames.Enabled {
		fw, err := render.NewFrameWriter(b.Config.Frames.Dir, b.Config.Frames.CellWidth, b.Config.Frames.RowHeight, b.Config.Frames.ColumnColors)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fw)
	}
	if b.Hub != nil {
		sinks = append(sinks, b.Hub)
	}
	return sinks, nil
}

// NewDriver loads the window and wires engine, metrics and sinks together.
func (b *Bootstrap) NewDriver(ctx context.Context, extra ...playback.Sink) (*playback.Driver, error) {
	quotes, trades, err := b.LoadReplay(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := ladder.NewEngine(b.Config.LadderConfig(), quotes, trades, playback.Observer(b.Metrics))
	if err != nil {
		return nil, err
	}

	sinks, err := b.Sinks()
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, extra...)

	return playback.NewDriver(engine, b.Config.Replay.Speed, b.Metrics, b.Logger, sinks...)
}

// Run starts the feed (if enabled) and replays the configured window.
// An empty window is logged and treated as success.
func (b *Bootstrap) Run(ctx context.Context) error {
	if b.Server != nil {
		b.Server.Start(ctx)
	}
	if b.Hub != nil {
		defer b.Hub.Done()
	}

	driver, err := b.NewDriver(ctx)
	if errors.Is(err, domain.ErrEmptyReplay) {
		slog.Warn("Nothing to replay in window")
		return nil
	}
	if err != nil {
		return err
	}

	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the database.
func (b *Bootstrap) Close() error {
	if b.Store == nil {
		return nil
	}
	return b.Store.Close()
}
