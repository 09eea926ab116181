package interfaces

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// Listener plumbing
// -----------------------------------------------------------------------------

// PriceListener receives raw ticks from a stream provider.
type PriceListener func(tick models.MTick)

// CandleListener receives in-progress and completed candle events.
type CandleListener func(event models.MCandleEvent)

// DetachFunc removes a previously attached listener. Safe to call more than
// once.
type DetachFunc func()

// -----------------------------------------------------------------------------
// IStreamProvider interface for push-based price feeds.
// Implemented by the live (websocket) provider and the simulated provider;
// the router treats both uniformly.
// -----------------------------------------------------------------------------

type IStreamProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// SubscribeTrades starts trade-tick delivery for the given symbols.
	SubscribeTrades(symbols []string) error

	// -----------------------------------------------------------------------------

	// SubscribeAggregates starts delivery for the given symbols on behalf of a
	// specific chart timeframe.
	SubscribeAggregates(symbols []string, timeframe string) error

	// -----------------------------------------------------------------------------

	// UnsubscribeTrades stops trade-tick delivery for the given symbols.
	UnsubscribeTrades(symbols []string) error

	// -----------------------------------------------------------------------------

	// UnsubscribeAggregates stops timeframe delivery for the given symbols.
	UnsubscribeAggregates(symbols []string, timeframe string) error

	// -----------------------------------------------------------------------------

	// OnPrice attaches a tick listener to the provider's fan-out registry.
	OnPrice(listener PriceListener) DetachFunc

	// -----------------------------------------------------------------------------

	// ClearAll drops every subscription. Must be idempotent; callers invoke it
	// during teardown.
	ClearAll() error
}
