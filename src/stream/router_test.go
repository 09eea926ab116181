package stream

import (
	"errors"
	"sync"
	"testing"
	"time"

	"market-sync/src/candles"
	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// fakeProvider records every command the router issues and can be told to
// fail subscribes.
// -----------------------------------------------------------------------------

type fakeProvider struct {
	name string

	mu           sync.Mutex
	calls        []string
	subscribeErr error
	clearErr     error
	unsubErr     error

	listeners *utils.Registry[models.MTick]
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, listeners: utils.NewRegistry[models.MTick]()}
}

func (p *fakeProvider) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakeProvider) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) SubscribeTrades(symbols []string) error {
	p.record("subscribeTrades")
	return p.subscribeErr
}

func (p *fakeProvider) SubscribeAggregates(symbols []string, timeframe string) error {
	p.record("subscribeAggregates:" + timeframe)
	return p.subscribeErr
}

func (p *fakeProvider) UnsubscribeTrades(symbols []string) error {
	p.record("unsubscribeTrades")
	return p.unsubErr
}

func (p *fakeProvider) UnsubscribeAggregates(symbols []string, timeframe string) error {
	p.record("unsubscribeAggregates:" + timeframe)
	return p.unsubErr
}

func (p *fakeProvider) OnPrice(listener interfaces.PriceListener) interfaces.DetachFunc {
	return interfaces.DetachFunc(p.listeners.Add(func(tick models.MTick) {
		listener(tick)
	}))
}

func (p *fakeProvider) ClearAll() error {
	p.record("clearAll")
	return p.clearErr
}

func (p *fakeProvider) emit(tick models.MTick) {
	p.listeners.Emit(tick)
}

// -----------------------------------------------------------------------------

func newTestRouter(provider string, developerMode bool) (*StreamRouter, *fakeProvider, *fakeProvider) {
	live := newFakeProvider("live")
	sim := newFakeProvider("simulated")
	agg := candles.NewCandleAggregator(10, logger.NewLogger("router-test"))
	cfg := models.MStreamConfig{Provider: provider}
	r := NewStreamRouter(cfg, developerMode, live, sim, agg, logger.NewLogger("router-test"))
	return r, live, sim
}

// -----------------------------------------------------------------------------
// Provider selection
// -----------------------------------------------------------------------------

func TestSimulatedModeRoutesToSimAndDropsLive(t *testing.T) {
	r, live, sim := newTestRouter("simulated", true)

	require.NoError(t, r.Subscribe([]string{"AAPL"}))

	require.Equal(t, []string{"subscribeTrades"}, sim.recorded())
	// Defensive live unsubscribe keeps the stream single-sourced.
	require.Equal(t, []string{"unsubscribeTrades"}, live.recorded())
}

// -----------------------------------------------------------------------------

func TestLiveModeRoutesToLive(t *testing.T) {
	r, live, sim := newTestRouter("live", false)

	require.NoError(t, r.Subscribe([]string{"AAPL"}))

	require.Equal(t, []string{"subscribeTrades"}, live.recorded())
	require.Empty(t, sim.recorded())
}

// -----------------------------------------------------------------------------

func TestSimulatedProviderWithoutDeveloperModeStaysLive(t *testing.T) {
	// provider=simulated but developer mode off: live remains authoritative.
	r, live, sim := newTestRouter("simulated", false)

	require.NoError(t, r.Subscribe([]string{"AAPL"}))

	require.Equal(t, []string{"subscribeTrades"}, live.recorded())
	require.Empty(t, sim.recorded())
}

// -----------------------------------------------------------------------------

func TestLiveFailureFallsBackOnlyInDeveloperMode(t *testing.T) {
	r, live, sim := newTestRouter("live", true)
	live.subscribeErr = helpers.NewProviderUnavailableError("live", errors.New("dial refused"))

	require.NoError(t, r.Subscribe([]string{"AAPL"}))
	require.Equal(t, []string{"subscribeTrades"}, sim.recorded())

	// Same failure without developer mode propagates.
	r2, live2, sim2 := newTestRouter("live", false)
	live2.subscribeErr = helpers.NewProviderUnavailableError("live", errors.New("dial refused"))

	err := r2.Subscribe([]string{"AAPL"})
	require.Error(t, err)
	require.True(t, IsProviderUnavailable(err))
	require.Empty(t, sim2.recorded())
}

// -----------------------------------------------------------------------------

func TestSubscribeEmptySymbolsIsNoOp(t *testing.T) {
	r, live, sim := newTestRouter("live", false)

	require.NoError(t, r.Subscribe(nil))
	require.Empty(t, live.recorded())
	require.Empty(t, sim.recorded())
}

// -----------------------------------------------------------------------------
// Timeframe subscriptions
// -----------------------------------------------------------------------------

func TestSubscribeForTimeframeStartsCandleTracking(t *testing.T) {
	r, _, sim := newTestRouter("simulated", true)

	require.NoError(t, r.SubscribeForTimeframe([]string{"AAPL"}, "1m"))
	require.Contains(t, sim.recorded(), "subscribeAggregates:1m")

	var mu sync.Mutex
	var events []models.MCandleEvent
	r.OnCandle(func(event models.MCandleEvent) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	})

	ts := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	sim.emit(models.MTick{Symbol: "AAPL", Price: 10, Volume: 1, Timestamp: ts})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	require.Equal(t, models.CandleEventUpdate, events[0].Kind)
	require.Equal(t, 10.0, events[0].Candle.Open)
}

func TestSubscribeForTimeframeRejectsUnknownTimeframe(t *testing.T) {
	r, live, _ := newTestRouter("live", false)

	require.Error(t, r.SubscribeForTimeframe([]string{"AAPL"}, "7m"))
	require.Empty(t, live.recorded())
}

// -----------------------------------------------------------------------------
// Teardown never fails
// -----------------------------------------------------------------------------

func TestUnsubscribeSwallowsProviderErrors(t *testing.T) {
	r, live, sim := newTestRouter("live", false)
	live.unsubErr = errors.New("socket gone")
	sim.unsubErr = errors.New("not subscribed")

	// Must not panic and must reach both providers.
	r.Unsubscribe([]string{"AAPL"})
	require.Equal(t, []string{"unsubscribeTrades"}, live.recorded())
	require.Equal(t, []string{"unsubscribeTrades"}, sim.recorded())
}

func TestClearAllSwallowsProviderErrors(t *testing.T) {
	r, live, sim := newTestRouter("live", false)
	live.clearErr = errors.New("socket gone")
	sim.clearErr = errors.New("already cleared")

	r.ClearAll()
	require.Equal(t, []string{"clearAll"}, live.recorded())
	require.Equal(t, []string{"clearAll"}, sim.recorded())
}

// -----------------------------------------------------------------------------

func TestUnsubscribeTimeframeCleansCandleState(t *testing.T) {
	r, _, sim := newTestRouter("simulated", true)

	require.NoError(t, r.SubscribeForTimeframe([]string{"AAPL"}, "1m"))
	ts := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	sim.emit(models.MTick{Symbol: "AAPL", Price: 10, Volume: 1, Timestamp: ts})
	sim.emit(models.MTick{Symbol: "AAPL", Price: 11, Volume: 1, Timestamp: ts.Add(61 * time.Second)})
	require.Len(t, r.CandleHistory("AAPL", "1m", 10), 1)

	r.UnsubscribeTimeframe([]string{"AAPL"}, "1m")
	require.Empty(t, r.CandleHistory("AAPL", "1m", 10))
}

// -----------------------------------------------------------------------------
// Listener fan-out
// -----------------------------------------------------------------------------

func TestOnPriceReceivesFromBothProviders(t *testing.T) {
	r, live, sim := newTestRouter("live", true)

	var mu sync.Mutex
	var got []string
	detach := r.OnPrice(func(tick models.MTick) {
		mu.Lock()
		got = append(got, tick.Symbol)
		mu.Unlock()
	})

	live.emit(models.MTick{Symbol: "LIVE"})
	sim.emit(models.MTick{Symbol: "SIM"})

	mu.Lock()
	require.Equal(t, []string{"LIVE", "SIM"}, got)
	mu.Unlock()

	detach()
	detach() // idempotent
	live.emit(models.MTick{Symbol: "LIVE"})
	sim.emit(models.MTick{Symbol: "SIM"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
}
