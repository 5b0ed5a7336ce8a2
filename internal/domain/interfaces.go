package domain

import "context"

// EventSource delivers the two time-ordered record streams for a replay window.
type EventSource interface {
	LoadQuotes(ctx context.Context, w Window) ([]Quote, error)
	LoadTrades(ctx context.Context, w Window) ([]Trade, error)
}
