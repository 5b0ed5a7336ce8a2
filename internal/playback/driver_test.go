package playback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ladder_go/internal/domain"
	"ladder_go/internal/infra"
	"ladder_go/internal/ladder"

	"github.com/shopspring/decimal"
)

var base = time.Date(2019, 3, 1, 9, 30, 0, 0, time.UTC)

func at(ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

func quote(ms int, bid, ask string) domain.Quote {
	return domain.Quote{
		Ts:       at(ms),
		BidPrice: decimal.RequireFromString(bid),
		BidSize:  10,
		AskPrice: decimal.RequireFromString(ask),
		AskSize:  5,
	}
}

func trade(ms int, price string, volume int64) domain.Trade {
	return domain.Trade{Ts: at(ms), Price: decimal.RequireFromString(price), Volume: volume}
}

func testConfig() ladder.Config {
	return ladder.Config{RowCount: 5, TickSize: decimal.RequireFromString("0.01"), PriceFormat: "%.2f"}
}

// fakeClock advances only when the driver sleeps or a test moves it.
type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return nil
}

type recordingSink struct {
	snaps []ladder.Snapshot
	onPub func(ladder.Snapshot) error
}

func (s *recordingSink) Publish(snap ladder.Snapshot) error {
	s.snaps = append(s.snaps, snap)
	if s.onPub != nil {
		return s.onPub(snap)
	}
	return nil
}

func newTestDriver(t *testing.T, speed float64, m *infra.Metrics, quotes []domain.Quote, trades []domain.Trade, sinks ...Sink) (*Driver, *fakeClock) {
	t.Helper()
	engine, err := ladder.NewEngine(testConfig(), quotes, trades, Observer(m))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := NewDriver(engine, speed, m, logger, sinks...)
	if err != nil {
		t.Fatalf("NewDriver failed: %v", err)
	}
	clock := &fakeClock{now: time.Unix(0, 0)}
	d.now = clock.Now
	d.sleep = clock.Sleep
	d.dumpPath = filepath.Join(t.TempDir(), PanicDumpFile)
	return d, clock
}

func sampleStreams() ([]domain.Quote, []domain.Trade) {
	quotes := []domain.Quote{quote(0, "100.00", "100.01"), quote(1000, "100.01", "100.02")}
	trades := []domain.Trade{trade(500, "100.01", 3)}
	return quotes, trades
}

func TestDriver_Pacing(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  []time.Duration
	}{
		{"real time", 1, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}},
		{"double speed", 2, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}},
		{"half speed", 0.5, []time.Duration{time.Second, time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes, trades := sampleStreams()
			sink := &recordingSink{}
			d, clock := newTestDriver(t, tt.speed, &infra.Metrics{}, quotes, trades, sink)

			if err := d.Run(context.Background()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if len(clock.waits) != len(tt.want) {
				t.Fatalf("Expected %d waits, got %v", len(tt.want), clock.waits)
			}
			for i, w := range tt.want {
				if clock.waits[i] != w {
					t.Errorf("wait %d: expected %v, got %v", i, w, clock.waits[i])
				}
			}
		})
	}
}

func TestDriver_PublishesInOrder(t *testing.T) {
	quotes, trades := sampleStreams()
	first, second := &recordingSink{}, &recordingSink{}
	m := &infra.Metrics{}
	d, _ := newTestDriver(t, 1, m, quotes, trades, first, second)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantKinds := []domain.EventKind{domain.EventQuote, domain.EventTrade, domain.EventQuote}
	for _, sink := range []*recordingSink{first, second} {
		if len(sink.snaps) != len(wantKinds) {
			t.Fatalf("Expected %d snapshots, got %d", len(wantKinds), len(sink.snaps))
		}
		for i, snap := range sink.snaps {
			if snap.Seq != uint64(i+1) {
				t.Errorf("Expected seq %d, got %d", i+1, snap.Seq)
			}
			if snap.Kind != wantKinds[i] {
				t.Errorf("snapshot %d: expected %s, got %s", i, wantKinds[i], snap.Kind)
			}
		}
	}

	if d.Last().Seq != 3 {
		t.Errorf("Expected last seq 3, got %d", d.Last().Seq)
	}
	if got := m.Snapshot().SnapshotsPublished; got != 6 {
		t.Errorf("Expected 6 publishes, got %d", got)
	}
}

func TestDriver_ObserverMetrics(t *testing.T) {
	quotes := []domain.Quote{
		quote(10, "100.00", "100.01"),
		quote(100, "100.03", "100.04"),
	}
	trades := []domain.Trade{
		trade(0, "100.00", 1),  // before the first quote
		trade(50, "100.01", 2), // placed
		trade(150, "99.50", 4), // outside the window
	}
	m := &infra.Metrics{}
	d, _ := newTestDriver(t, 1, m, quotes, trades)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := m.Snapshot()
	if snap.QuotesApplied != 2 {
		t.Errorf("Expected 2 quotes, got %d", snap.QuotesApplied)
	}
	if snap.TradesApplied != 3 {
		t.Errorf("Expected 3 trades, got %d", snap.TradesApplied)
	}
	if snap.TradesUnplaced != 2 {
		t.Errorf("Expected 2 unplaced trades, got %d", snap.TradesUnplaced)
	}
	if snap.Reanchors != 2 {
		t.Errorf("Expected 2 re-anchors, got %d", snap.Reanchors)
	}
}

func TestDriver_SinkErrorIsNotFatal(t *testing.T) {
	quotes, trades := sampleStreams()
	failing := &recordingSink{onPub: func(ladder.Snapshot) error { return errors.New("disk full") }}
	healthy := &recordingSink{}
	m := &infra.Metrics{}
	d, _ := newTestDriver(t, 1, m, quotes, trades, failing, healthy)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(healthy.snaps) != 3 {
		t.Errorf("Expected healthy sink to get 3 snapshots, got %d", len(healthy.snaps))
	}
	if got := m.Snapshot().SinkErrors; got != 3 {
		t.Errorf("Expected 3 sink errors, got %d", got)
	}
}

func TestDriver_Cancelled(t *testing.T) {
	quotes, trades := sampleStreams()
	sink := &recordingSink{}
	d, _ := newTestDriver(t, 1, &infra.Metrics{}, quotes, trades, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(sink.snaps) != 0 {
		t.Errorf("Expected no snapshots after cancel, got %d", len(sink.snaps))
	}
}

func TestDriver_CancelledMidReplay(t *testing.T) {
	quotes, trades := sampleStreams()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{onPub: func(ladder.Snapshot) error {
		cancel()
		return nil
	}}
	d, _ := newTestDriver(t, 1, &infra.Metrics{}, quotes, trades, sink)

	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(sink.snaps) != 1 {
		t.Errorf("Expected exactly 1 snapshot, got %d", len(sink.snaps))
	}
}

func TestDriver_Lag(t *testing.T) {
	quotes, trades := sampleStreams()
	var clock *fakeClock
	slow := &recordingSink{onPub: func(snap ladder.Snapshot) error {
		if snap.Seq == 1 {
			clock.now = clock.now.Add(2 * time.Second)
		}
		return nil
	}}
	m := &infra.Metrics{}
	d, c := newTestDriver(t, 1, m, quotes, trades, slow)
	clock = c

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(clock.waits) != 0 {
		t.Errorf("Expected no waits while behind schedule, got %v", clock.waits)
	}
	// Last event is due at 1s, the clock reads 2s.
	if got := m.Snapshot().Lag; got != time.Second {
		t.Errorf("Expected lag 1s, got %v", got)
	}
}

func TestDriver_EmptyStreams(t *testing.T) {
	sink := &recordingSink{}
	d, _ := newTestDriver(t, 1, &infra.Metrics{}, nil, nil, sink)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sink.snaps) != 0 {
		t.Errorf("Expected no snapshots, got %d", len(sink.snaps))
	}
}

func TestDriver_PanicDumpsState(t *testing.T) {
	quotes, trades := sampleStreams()
	sink := &recordingSink{onPub: func(snap ladder.Snapshot) error {
		if snap.Seq == 2 {
			panic("renderer exploded")
		}
		return nil
	}}
	d, _ := newTestDriver(t, 1, &infra.Metrics{}, quotes, trades, sink)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Driver should have panicked")
		}

		b, err := os.ReadFile(d.dumpPath)
		if err != nil {
			t.Fatalf("dump not written: %v", err)
		}
		var dump struct {
			QuotesCursor int `json:"quotes_cursor"`
			TradesCursor int `json:"trades_cursor"`
			Last         struct {
				Seq uint64 `json:"seq"`
			} `json:"last"`
		}
		if err := json.Unmarshal(b, &dump); err != nil {
			t.Fatalf("bad dump: %v", err)
		}
		if dump.QuotesCursor != 1 || dump.TradesCursor != 1 {
			t.Errorf("Expected cursors (1,1), got (%d,%d)", dump.QuotesCursor, dump.TradesCursor)
		}
		if dump.Last.Seq != 2 {
			t.Errorf("Expected last seq 2, got %d", dump.Last.Seq)
		}
	}()

	d.Run(context.Background())
}

func TestNewDriver_RejectsSpeed(t *testing.T) {
	engine, err := ladder.NewEngine(testConfig(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	for _, speed := range []float64{0, -1} {
		_, err := NewDriver(engine, speed, nil, nil)
		if !domain.IsConfigError(err) {
			t.Errorf("speed %v: expected config error, got %v", speed, err)
		}
	}
}
