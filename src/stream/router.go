package stream

import (
	"market-sync/src/candles"
	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/utils"
)

// -----------------------------------------------------------------------------
// StreamRouter selects between the live and the simulated provider and fans
// price events out to subscribers. It never owns a canonical subscription
// set: it only issues commands to both providers, which track their own.
//
// Teardown paths (unsubscribe/clearAll) must never fail - every provider
// error there is logged and swallowed.
// -----------------------------------------------------------------------------

type StreamRouter struct {
	Logger *logger.Logger

	developerMode bool
	providerName  string

	live interfaces.IStreamProvider
	sim  interfaces.IStreamProvider

	agg *candles.CandleAggregator

	// The aggregator listens to both providers; only one is logically active
	// at a time, so the tick stream stays single-sourced.
	detachFeeds []interfaces.DetachFunc
}

// -----------------------------------------------------------------------------

func NewStreamRouter(
	cfg models.MStreamConfig,
	developerMode bool,
	live interfaces.IStreamProvider,
	sim interfaces.IStreamProvider,
	agg *candles.CandleAggregator,
	log *logger.Logger,
) *StreamRouter {
	r := &StreamRouter{
		Logger:        log,
		developerMode: developerMode,
		providerName:  cfg.Provider,
		live:          live,
		sim:           sim,
		agg:           agg,
	}

	feed := func(tick models.MTick) { agg.ProcessTick(tick) }
	r.detachFeeds = append(r.detachFeeds, live.OnPrice(feed), sim.OnPrice(feed))

	return r
}

// -----------------------------------------------------------------------------

// simulatedMode reports whether the synthetic provider is the active one.
func (r *StreamRouter) simulatedMode() bool {
	return r.developerMode && r.providerName == "simulated"
}

// -----------------------------------------------------------------------------

// Subscribe starts trade-tick delivery for the symbols on the active
// provider. In live mode a failed subscribe falls back to the simulated
// provider only when developer mode is on; otherwise the error propagates.
func (r *StreamRouter) Subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	if r.simulatedMode() {
		// Defensively drop any lingering live subscriptions for the same
		// symbols so a consumer never sees duplicate emissions.
		if err := r.live.UnsubscribeTrades(symbols); err != nil {
			r.Logger.Debug("Ignoring live unsubscribe error in simulated mode: %v", err)
		}
		return r.sim.SubscribeTrades(symbols)
	}

	if err := r.live.SubscribeTrades(symbols); err != nil {
		if r.developerMode {
			r.Logger.Warning("Live subscribe failed (%v), falling back to simulated for %v", err, symbols)
			return r.sim.SubscribeTrades(symbols)
		}
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// SubscribeForTimeframe subscribes the symbols and starts candle tracking for
// the given chart timeframe.
func (r *StreamRouter) SubscribeForTimeframe(symbols []string, timeframe string) error {
	if _, err := utils.TimeframeDuration(timeframe); err != nil {
		return err
	}

	for _, symbol := range symbols {
		if err := r.agg.InitializeCandle(symbol, timeframe); err != nil {
			return err
		}
	}

	if r.simulatedMode() {
		if err := r.live.UnsubscribeAggregates(symbols, timeframe); err != nil {
			r.Logger.Debug("Ignoring live unsubscribe error in simulated mode: %v", err)
		}
		return r.sim.SubscribeAggregates(symbols, timeframe)
	}

	if err := r.live.SubscribeAggregates(symbols, timeframe); err != nil {
		if r.developerMode {
			r.Logger.Warning("Live aggregate subscribe failed (%v), falling back to simulated for %v", err, symbols)
			return r.sim.SubscribeAggregates(symbols, timeframe)
		}
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Unsubscribe detaches the symbols from BOTH providers. Never fails.
func (r *StreamRouter) Unsubscribe(symbols []string) {
	if err := r.live.UnsubscribeTrades(symbols); err != nil {
		r.Logger.Warning("Live unsubscribe error (ignored): %v", err)
	}
	if err := r.sim.UnsubscribeTrades(symbols); err != nil {
		r.Logger.Warning("Simulated unsubscribe error (ignored): %v", err)
	}
}

// -----------------------------------------------------------------------------

// UnsubscribeTimeframe detaches the symbols' timeframe subscription from both
// providers and forgets the candle state. Never fails.
func (r *StreamRouter) UnsubscribeTimeframe(symbols []string, timeframe string) {
	if err := r.live.UnsubscribeAggregates(symbols, timeframe); err != nil {
		r.Logger.Warning("Live unsubscribe error (ignored): %v", err)
	}
	if err := r.sim.UnsubscribeAggregates(symbols, timeframe); err != nil {
		r.Logger.Warning("Simulated unsubscribe error (ignored): %v", err)
	}

	for _, symbol := range symbols {
		r.agg.Cleanup(symbol, timeframe)
	}
}

// -----------------------------------------------------------------------------

// OnPrice attaches the listener to both providers' fan-out lists so the
// contract stays provider-agnostic; the single returned detach removes both.
func (r *StreamRouter) OnPrice(listener interfaces.PriceListener) interfaces.DetachFunc {
	detachLive := r.live.OnPrice(listener)
	detachSim := r.sim.OnPrice(listener)

	return func() {
		detachLive()
		detachSim()
	}
}

// -----------------------------------------------------------------------------

// OnCandle attaches a candle listener.
func (r *StreamRouter) OnCandle(listener interfaces.CandleListener) interfaces.DetachFunc {
	return r.agg.OnCandleUpdate(listener)
}

// -----------------------------------------------------------------------------

// CandleHistory exposes completed bars for late-joining chart consumers.
func (r *StreamRouter) CandleHistory(symbol, timeframe string, n int) []models.MCandle {
	return r.agg.History(symbol, timeframe, n)
}

// -----------------------------------------------------------------------------

// ClearAll tears everything down on both providers. Never fails.
func (r *StreamRouter) ClearAll() {
	if err := r.live.ClearAll(); err != nil {
		r.Logger.Warning("Live clearAll error (ignored): %v", err)
	}
	if err := r.sim.ClearAll(); err != nil {
		r.Logger.Warning("Simulated clearAll error (ignored): %v", err)
	}
	r.agg.Reset()
}

// -----------------------------------------------------------------------------

// IsProviderUnavailable re-exported for callers that want to branch on the
// live feed being down.
func IsProviderUnavailable(err error) bool {
	return helpers.IsProviderUnavailable(err)
}
