package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a best bid/ask update for a single instrument.
type Quote struct {
	Ts       time.Time       `json:"ts"`
	BidPrice decimal.Decimal `json:"bid_price"`
	BidSize  int64           `json:"bid_size"`
	AskPrice decimal.Decimal `json:"ask_price"`
	AskSize  int64           `json:"ask_size"`
}

// Trade is a single executed print.
type Trade struct {
	Ts     time.Time       `json:"ts"`
	Price  decimal.Decimal `json:"price"`
	Volume int64           `json:"volume"`
}

// Window selects the records of one symbol between Start and End (both inclusive).
type Window struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}

// EventKind tells which stream an applied event came from.
type EventKind uint8

const (
	EventQuote EventKind = iota + 1
	EventTrade
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case EventQuote:
		return "quote"
	case EventTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// MarshalText lets EventKind travel as "quote"/"trade" in JSON.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
