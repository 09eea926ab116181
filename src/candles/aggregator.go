package candles

import (
	"fmt"
	"sync"
	"time"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/utils"
)

// -----------------------------------------------------------------------------
// CandleAggregator folds a tick stream into per-(symbol, timeframe) OHLCV
// bars. One live candle exists per tracked pair; when a tick lands in a later
// bucket, the current candle is emitted as complete, pushed into the history
// ring and replaced by a fresh one.
//
// Invariants after every tick: high >= max(open, close) and
// low <= min(open, close); bucketStart = floor(ts / duration) * duration.
// -----------------------------------------------------------------------------

type CandleAggregator struct {
	Logger *logger.Logger

	mu         sync.Mutex
	tracked    map[string]*trackedSeries // keyed by symbol|timeframe
	historyLen int

	listeners *utils.Registry[models.MCandleEvent]
}

// -----------------------------------------------------------------------------

type trackedSeries struct {
	symbol    string
	timeframe string
	duration  time.Duration
	current   *models.MCandle
	history   *History
}

// -----------------------------------------------------------------------------

func NewCandleAggregator(historyLen int, log *logger.Logger) *CandleAggregator {
	return &CandleAggregator{
		Logger:     log,
		tracked:    make(map[string]*trackedSeries),
		historyLen: historyLen,
		listeners:  utils.NewRegistry[models.MCandleEvent](),
	}
}

// -----------------------------------------------------------------------------

func seriesKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

// -----------------------------------------------------------------------------

// InitializeCandle starts tracking a (symbol, timeframe) pair. Idempotent.
func (a *CandleAggregator) InitializeCandle(symbol, timeframe string) error {
	duration, err := utils.TimeframeDuration(timeframe)
	if err != nil {
		return fmt.Errorf("initialize candle %s: %w", symbol, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := seriesKey(symbol, timeframe)
	if _, exists := a.tracked[key]; exists {
		return nil
	}

	a.tracked[key] = &trackedSeries{
		symbol:    symbol,
		timeframe: timeframe,
		duration:  duration,
		history:   NewHistory(a.historyLen),
	}
	return nil
}

// -----------------------------------------------------------------------------

// ProcessTick folds one tick into every tracked timeframe of its symbol.
func (a *CandleAggregator) ProcessTick(tick models.MTick) {
	var events []models.MCandleEvent

	a.mu.Lock()
	for _, series := range a.tracked {
		if series.symbol != tick.Symbol {
			continue
		}
		events = append(events, a.foldLocked(series, tick)...)
	}
	a.mu.Unlock()

	for _, event := range events {
		a.listeners.Emit(event)
	}
}

// -----------------------------------------------------------------------------

// foldLocked applies the open -> update* -> close/reopen state machine for a
// single series. Caller must hold a.mu.
func (a *CandleAggregator) foldLocked(series *trackedSeries, tick models.MTick) []models.MCandleEvent {
	bucket := utils.BucketStart(tick.Timestamp, series.duration)

	// No current candle: open one on this tick
	if series.current == nil {
		series.current = openCandle(series, bucket, tick)
		return []models.MCandleEvent{{Kind: models.CandleEventUpdate, Candle: *series.current}}
	}

	switch {
	case bucket.Equal(series.current.BucketStart):
		// Same bucket: fold in place
		series.current.Close = tick.Price
		if tick.Price > series.current.High {
			series.current.High = tick.Price
		}
		if tick.Price < series.current.Low {
			series.current.Low = tick.Price
		}
		series.current.Volume += tick.Volume
		return []models.MCandleEvent{{Kind: models.CandleEventUpdate, Candle: *series.current}}

	case bucket.After(series.current.BucketStart):
		// Bucket rolled over: finalize, then reopen on the new tick
		completed := *series.current
		series.history.Append(completed)
		series.current = openCandle(series, bucket, tick)
		return []models.MCandleEvent{
			{Kind: models.CandleEventComplete, Candle: completed},
			{Kind: models.CandleEventUpdate, Candle: *series.current},
		}

	default:
		// Out-of-order tick: earlier than the live bucket. Dropped rather
		// than rewriting already-closed bars.
		a.Logger.Debug("Dropping out-of-order tick %s@%.4f (bucket %s < %s)",
			tick.Symbol, tick.Price, bucket.Format(time.RFC3339), series.current.BucketStart.Format(time.RFC3339))
		return nil
	}
}

// -----------------------------------------------------------------------------

func openCandle(series *trackedSeries, bucket time.Time, tick models.MTick) *models.MCandle {
	return &models.MCandle{
		Symbol:      series.symbol,
		Timeframe:   series.timeframe,
		BucketStart: bucket,
		Open:        tick.Price,
		High:        tick.Price,
		Low:         tick.Price,
		Close:       tick.Price,
		Volume:      tick.Volume,
	}
}

// -----------------------------------------------------------------------------

// OnCandleUpdate attaches a candle listener and returns its detach token.
func (a *CandleAggregator) OnCandleUpdate(listener interfaces.CandleListener) interfaces.DetachFunc {
	return interfaces.DetachFunc(a.listeners.Add(func(event models.MCandleEvent) {
		listener(event)
	}))
}

// -----------------------------------------------------------------------------

// Cleanup discards in-memory state for the given timeframes, or for every
// timeframe of the symbol when none is given. No final candle-complete event
// is emitted; the state is simply forgotten.
func (a *CandleAggregator) Cleanup(symbol string, timeframes ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(timeframes) == 0 {
		for key, series := range a.tracked {
			if series.symbol == symbol {
				delete(a.tracked, key)
			}
		}
		return
	}

	for _, timeframe := range timeframes {
		delete(a.tracked, seriesKey(symbol, timeframe))
	}
}

// -----------------------------------------------------------------------------

// Reset drops all tracked series.
func (a *CandleAggregator) Reset() {
	a.mu.Lock()
	a.tracked = make(map[string]*trackedSeries)
	a.mu.Unlock()
}

// -----------------------------------------------------------------------------

// CurrentCandle returns the live (in-progress) candle for a pair, if any.
func (a *CandleAggregator) CurrentCandle(symbol, timeframe string) (models.MCandle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	series, ok := a.tracked[seriesKey(symbol, timeframe)]
	if !ok || series.current == nil {
		return models.MCandle{}, false
	}
	return *series.current, true
}

// -----------------------------------------------------------------------------

// History returns up to n completed candles for a pair, oldest first.
func (a *CandleAggregator) History(symbol, timeframe string, n int) []models.MCandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	series, ok := a.tracked[seriesKey(symbol, timeframe)]
	if !ok {
		return []models.MCandle{}
	}
	return series.history.GetLatest(n)
}
