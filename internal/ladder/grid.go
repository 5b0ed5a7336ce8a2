package ladder

import (
	"github.com/shopspring/decimal"
)

var (
	two  = decimal.NewFromInt(2)
	half = decimal.New(5, -1)
)

// PriceGrid is the visible window of RowCount levels, descending by TickSize
// from the top row, and the display cells each level owns.
type PriceGrid struct {
	cfg      Config
	halfTick decimal.Decimal
	rows     []Row
	anchored bool
}

// NewPriceGrid creates an unanchored grid. cfg must already be validated.
func NewPriceGrid(cfg Config) *PriceGrid {
	return &PriceGrid{
		cfg:      cfg,
		halfTick: cfg.TickSize.Div(two),
		rows:     make([]Row, cfg.RowCount),
	}
}

// Anchor regenerates every level starting at top, clears sizes and
// aggregated volume, and relabels the price column.
func (g *PriceGrid) Anchor(top decimal.Decimal) {
	for i := range g.rows {
		level := top.Sub(g.cfg.TickSize.Mul(decimal.NewFromInt(int64(i))))
		g.rows[i] = Row{
			Price: level,
			Label: g.cfg.formatPrice(level),
		}
	}
	g.anchored = true
}

// Anchored reports whether a quote has placed the grid yet.
func (g *PriceGrid) Anchored() bool {
	return g.anchored
}

// Top returns the highest level. Zero before the first anchor.
func (g *PriceGrid) Top() decimal.Decimal {
	return g.rows[0].Price
}

// Bottom returns the lowest level. Zero before the first anchor.
func (g *PriceGrid) Bottom() decimal.Decimal {
	return g.rows[len(g.rows)-1].Price
}

// Level returns the price of row i.
func (g *PriceGrid) Level(i int) decimal.Decimal {
	return g.rows[i].Price
}

// Len returns the number of rows.
func (g *PriceGrid) Len() int {
	return len(g.rows)
}

// FindRow returns the row whose level lies strictly within half a tick of price.
// A price exactly between two levels, or outside the window, matches nothing.
func (g *PriceGrid) FindRow(price decimal.Decimal) (int, bool) {
	if !g.anchored {
		return 0, false
	}

	offset := g.Top().Sub(price).Div(g.cfg.TickSize)
	idx := offset.Round(0)
	if offset.Sub(idx).Abs().GreaterThanOrEqual(half) {
		return 0, false
	}
	if idx.IsNegative() || idx.GreaterThanOrEqual(decimal.NewFromInt(int64(len(g.rows)))) {
		return 0, false
	}

	i := int(idx.IntPart())
	// Guard against division rounding: confirm against the level itself.
	if g.rows[i].Price.Sub(price).Abs().GreaterThanOrEqual(g.halfTick) {
		return 0, false
	}
	return i, true
}

// NeedsReanchor reports whether a quote at ask/bid falls off the window.
func (g *PriceGrid) NeedsReanchor(ask, bid decimal.Decimal) bool {
	if !g.anchored {
		return true
	}
	return ask.GreaterThan(g.Top().Add(g.halfTick)) ||
		bid.LessThan(g.Bottom().Sub(g.halfTick))
}

// Row returns a copy of row i.
func (g *PriceGrid) Row(i int) Row {
	return g.rows[i]
}

// Cells renders the whole grid. Rows are blank until the first anchor.
func (g *PriceGrid) Cells() [][Columns]string {
	out := make([][Columns]string, len(g.rows))
	for i := range g.rows {
		out[i] = g.rows[i].Cells()
	}
	return out
}
