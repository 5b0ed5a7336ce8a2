package ladder

import (
	"log/slog"
	"time"

	"ladder_go/internal/domain"

	"github.com/shopspring/decimal"
)

// State is the engine lifecycle phase.
type State uint8

const (
	Unanchored State = iota
	Anchored
	Exhausted
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case Unanchored:
		return "UNANCHORED"
	case Anchored:
		return "ANCHORED"
	case Exhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// Event describes one applied record. It is passed to the engine's observer.
type Event struct {
	Seq        uint64
	Kind       domain.EventKind
	Ts         time.Time
	Index      int  // position in its own stream
	Reanchored bool // quote moved the window
	Placed     bool // trade landed on a grid row
}

// Engine merges quotes and trades in timestamp order and projects each one
// onto the price grid. It is single-threaded: Step must not be called
// concurrently, and nothing else may touch the engine while it runs.
type Engine struct {
	cfg    Config
	grid   *PriceGrid
	quotes []domain.Quote
	trades []domain.Trade

	quotesCursor int
	tradesCursor int
	origin       time.Time
	seq          uint64
	last         Event

	// Boundary: notified after every applied event
	onApply func(Event)
}

// NewEngine validates cfg and both streams and returns an engine positioned
// before the first record. Streams are held as given and never re-sorted.
func NewEngine(cfg Config, quotes []domain.Quote, trades []domain.Trade, onApply func(Event)) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkOrder(domain.EventQuote, len(quotes), func(i int) time.Time { return quotes[i].Ts }); err != nil {
		return nil, err
	}
	if err := checkOrder(domain.EventTrade, len(trades), func(i int) time.Time { return trades[i].Ts }); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		grid:    NewPriceGrid(cfg),
		quotes:  quotes,
		trades:  trades,
		onApply: onApply,
	}

	switch {
	case len(quotes) == 0 && len(trades) == 0:
	case len(quotes) == 0:
		e.origin = trades[0].Ts
	case len(trades) == 0:
		e.origin = quotes[0].Ts
	case trades[0].Ts.Before(quotes[0].Ts):
		e.origin = trades[0].Ts
	default:
		e.origin = quotes[0].Ts
	}

	return e, nil
}

func checkOrder(stream domain.EventKind, n int, ts func(int) time.Time) error {
	for i := 1; i < n; i++ {
		if ts(i).Before(ts(i - 1)) {
			return &domain.OutOfOrderError{Stream: stream, Index: i, Prev: ts(i - 1), Got: ts(i)}
		}
	}
	return nil
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	switch {
	case e.exhausted():
		return Exhausted
	case e.grid.Anchored():
		return Anchored
	default:
		return Unanchored
	}
}

// Cursors returns the index of the next unconsumed quote and trade.
func (e *Engine) Cursors() (quotes, trades int) {
	return e.quotesCursor, e.tradesCursor
}

// Grid exposes the grid for read-only inspection between steps.
func (e *Engine) Grid() *PriceGrid {
	return e.grid
}

func (e *Engine) exhausted() bool {
	return e.quotesCursor >= len(e.quotes) && e.tradesCursor >= len(e.trades)
}

// nextIsQuote picks the stream holding the next chronological record.
// Equal timestamps go to the quote. Callers ensure at least one stream remains.
func (e *Engine) nextIsQuote() bool {
	if e.quotesCursor >= len(e.quotes) {
		return false
	}
	if e.tradesCursor >= len(e.trades) {
		return true
	}
	return !e.trades[e.tradesCursor].Ts.Before(e.quotes[e.quotesCursor].Ts)
}

// Step applies the next record and returns the resulting snapshot.
// Once both streams are consumed it returns false, on every later call too.
func (e *Engine) Step() (Snapshot, bool) {
	if e.exhausted() {
		return Snapshot{}, false
	}

	e.seq++
	if e.nextIsQuote() {
		e.last = e.applyQuote()
	} else {
		e.last = e.applyTrade()
	}

	if e.onApply != nil {
		e.onApply(e.last)
	}
	return e.Snapshot(), true
}

// Snapshot returns a copy of the grid as of the last applied event.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Seq:        e.last.Seq,
		Kind:       e.last.Kind,
		Ts:         e.last.Ts,
		Elapsed:    e.elapsed(e.last.Ts),
		Reanchored: e.last.Reanchored,
		Rows:       e.grid.Cells(),
	}
}

func (e *Engine) elapsed(ts time.Time) time.Duration {
	if ts.IsZero() {
		return 0
	}
	return ts.Sub(e.origin)
}

// TimeUntilNextEvent returns the virtual time between replay start and the
// next unconsumed record, or zero when both streams are exhausted.
// The engine never sleeps; pacing is up to the caller.
func (e *Engine) TimeUntilNextEvent() time.Duration {
	if e.exhausted() {
		return 0
	}
	if e.nextIsQuote() {
		return e.quotes[e.quotesCursor].Ts.Sub(e.origin)
	}
	return e.trades[e.tradesCursor].Ts.Sub(e.origin)
}

func (e *Engine) applyQuote() Event {
	q := e.quotes[e.quotesCursor]
	ev := Event{Seq: e.seq, Kind: domain.EventQuote, Ts: q.Ts, Index: e.quotesCursor}

	if e.grid.NeedsReanchor(q.AskPrice, q.BidPrice) {
		above := decimal.NewFromInt(int64((e.cfg.RowCount - 1) / 2))
		e.grid.Anchor(q.AskPrice.Add(e.cfg.TickSize.Mul(above)))
		ev.Reanchored = true
		slog.Debug("Ladder re-anchored",
			slog.String("top", e.grid.Top().String()),
			slog.String("bottom", e.grid.Bottom().String()))
	}

	askRow, askOK := e.grid.FindRow(q.AskPrice)
	bidRow, bidOK := e.grid.FindRow(q.BidPrice)
	for i := range e.grid.rows {
		r := &e.grid.rows[i]
		r.clearQuote()
		if askOK && i == askRow {
			r.HasAsk, r.AskSize = true, q.AskSize
		}
		if bidOK && i == bidRow {
			r.HasBid, r.BidSize = true, q.BidSize
		}
	}

	slog.Debug("Quote applied",
		slog.Int("index", e.quotesCursor),
		slog.Time("ts", q.Ts),
		slog.String("bid", q.BidPrice.String()), slog.Int64("bid_size", q.BidSize),
		slog.String("ask", q.AskPrice.String()), slog.Int64("ask_size", q.AskSize))

	e.quotesCursor++
	return ev
}

func (e *Engine) applyTrade() Event {
	t := e.trades[e.tradesCursor]
	ev := Event{Seq: e.seq, Kind: domain.EventTrade, Ts: t.Ts, Index: e.tradesCursor}

	// A trade before the first quote has no grid to land on.
	if e.grid.Anchored() {
		row, ok := e.grid.FindRow(t.Price)
		for i := range e.grid.rows {
			r := &e.grid.rows[i]
			if ok && i == row {
				r.record(t.Volume)
				continue
			}
			r.clearTrades()
		}
		ev.Placed = ok
	}

	slog.Debug("Trade applied",
		slog.Int("index", e.tradesCursor),
		slog.Time("ts", t.Ts),
		slog.String("price", t.Price.String()),
		slog.Int64("volume", t.Volume),
		slog.Bool("placed", ev.Placed))

	e.tradesCursor++
	return ev
}
