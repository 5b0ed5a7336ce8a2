package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ladder_go/internal/domain"
	"ladder_go/internal/infra"
	"ladder_go/internal/ladder"
)

// PanicDumpFile receives the last snapshot when the replay loop panics.
const PanicDumpFile = "replay_panic_dump.json"

// Sink receives every snapshot the driver produces.
type Sink interface {
	Publish(snap ladder.Snapshot) error
}

// Driver paces an engine against the wall clock and fans each snapshot out
// to its sinks. Run must be called from a single goroutine.
type Driver struct {
	engine  *ladder.Engine
	sinks   []Sink
	speed   float64
	metrics *infra.Metrics
	logger  *slog.Logger

	dumpPath string
	last     ladder.Snapshot

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDriver creates a driver. speed scales virtual time: 2 plays twice as fast.
func NewDriver(engine *ladder.Engine, speed float64, metrics *infra.Metrics, logger *slog.Logger, sinks ...Sink) (*Driver, error) {
	if speed <= 0 {
		return nil, domain.NewConfigError("replay.speed", "must be positive, got %v", speed)
	}
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		engine:   engine,
		sinks:    sinks,
		speed:    speed,
		metrics:  metrics,
		logger:   logger,
		dumpPath: PanicDumpFile,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// Observer turns applied engine events into metrics. Pass it to
// ladder.NewEngine.
func Observer(m *infra.Metrics) func(ladder.Event) {
	return func(ev ladder.Event) {
		switch ev.Kind {
		case domain.EventQuote:
			m.RecordQuote(ev.Reanchored)
		case domain.EventTrade:
			m.RecordTrade(ev.Placed)
		}
	}
}

// Run replays until both streams are exhausted or ctx is cancelled.
// A panic dumps the last snapshot before propagating.
func (d *Driver) Run(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			d.DumpState(d.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	d.logger.Info("Replay started", slog.Float64("speed", d.speed), slog.Int("sinks", len(d.sinks)))
	start := d.now()
	steps := 0

	for d.engine.State() != ladder.Exhausted {
		due := time.Duration(float64(d.engine.TimeUntilNextEvent()) / d.speed)
		if wait := due - d.now().Sub(start); wait > 0 {
			d.metrics.SetLag(0)
			if err := d.sleep(ctx, wait); err != nil {
				d.logger.Info("Replay cancelled", slog.Int("steps", steps))
				return err
			}
		} else {
			d.metrics.SetLag(-wait)
		}
		if err := ctx.Err(); err != nil {
			d.logger.Info("Replay cancelled", slog.Int("steps", steps))
			return err
		}

		stepStart := d.now()
		snap, ok := d.engine.Step()
		if !ok {
			break
		}
		d.metrics.RecordStep(d.now().Sub(stepStart))
		d.last = snap
		steps++

		d.publish(snap)
	}

	d.logger.Info("Replay finished",
		slog.Int("steps", steps),
		slog.Duration("wall", d.now().Sub(start)),
		slog.Duration("virtual", d.last.Elapsed))
	return nil
}

func (d *Driver) publish(snap ladder.Snapshot) {
	for _, s := range d.sinks {
		if err := s.Publish(snap); err != nil {
			d.metrics.RecordSinkError()
			d.logger.Warn("Sink failed",
				slog.String("sink", fmt.Sprintf("%T", s)),
				slog.Uint64("seq", snap.Seq),
				slog.Any("error", err))
			continue
		}
		d.metrics.RecordPublish()
	}
}

// Last returns the most recently published snapshot.
func (d *Driver) Last() ladder.Snapshot {
	return d.last
}

// DumpState writes the last snapshot and stream cursors to a file (for post-mortem).
func (d *Driver) DumpState(filename string) {
	d.logger.Info("Dumping replay state...", slog.String("file", filename))

	quotes, trades := d.engine.Cursors()
	data := struct {
		QuotesCursor int             `json:"quotes_cursor"`
		TradesCursor int             `json:"trades_cursor"`
		State        string          `json:"state"`
		Last         ladder.Snapshot `json:"last"`
	}{
		QuotesCursor: quotes,
		TradesCursor: trades,
		State:        d.engine.State().String(),
		Last:         d.last,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		d.logger.Error("Failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		d.logger.Error("Failed to write state dump", slog.Any("error", err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
