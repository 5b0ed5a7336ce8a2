package ladder

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Columns is the fixed width of a ladder row.
const Columns = 5

// Column indexes of a rendered row.
const (
	ColBidVolume = iota // aggregated volume traded against the bid
	ColBidSize
	ColPrice
	ColAskSize
	ColAskVolume // aggregated volume traded against the ask
)

// TradeSide is the aggregation bucket a row's running trade volume belongs to.
type TradeSide uint8

const (
	Unclassified TradeSide = iota
	SellSide               // seller hit the bid posted at this level
	BuySide                // buyer lifted the ask posted at this level
)

// String returns the string representation of TradeSide
func (s TradeSide) String() string {
	switch s {
	case SellSide:
		return "SELL"
	case BuySide:
		return "BUY"
	default:
		return "UNCLASSIFIED"
	}
}

// Row is one price level of the grid together with its live cell state.
// Only one trade side is held at a time, so columns 0 and 4 are never both set.
type Row struct {
	Price decimal.Decimal
	Label string

	HasBid  bool
	BidSize int64
	HasAsk  bool
	AskSize int64

	Side   TradeSide
	Volume int64
}

func (r *Row) clearQuote() {
	r.HasBid, r.BidSize = false, 0
	r.HasAsk, r.AskSize = false, 0
}

func (r *Row) clearTrades() {
	r.Side, r.Volume = Unclassified, 0
}

// record folds a trade into the row, classifying it against the quote posted here.
func (r *Row) record(volume int64) {
	var side TradeSide
	switch {
	case r.HasBid:
		side = SellSide
	case r.HasAsk:
		side = BuySide
	default:
		r.clearTrades()
		return
	}

	if r.Side == side {
		volume += r.Volume
	}
	r.Side, r.Volume = side, volume
}

// Cells renders the row as the five display strings.
func (r Row) Cells() [Columns]string {
	var c [Columns]string
	c[ColPrice] = r.Label
	if r.HasBid {
		c[ColBidSize] = strconv.FormatInt(r.BidSize, 10)
	}
	if r.HasAsk {
		c[ColAskSize] = strconv.FormatInt(r.AskSize, 10)
	}
	switch r.Side {
	case SellSide:
		c[ColBidVolume] = strconv.FormatInt(r.Volume, 10)
	case BuySide:
		c[ColAskVolume] = strconv.FormatInt(r.Volume, 10)
	}
	return c
}
