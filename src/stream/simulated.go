package stream

import (
	"math/rand"
	"sync"
	"time"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/utils"
)

// -----------------------------------------------------------------------------
// SimulatedProvider generates synthetic ticks locally. Each subscribed symbol
// runs an independent, randomly-jittered repeating schedule; every tick
// perturbs the symbol's running price by a bounded random percentage and
// persists the latest quote through the injected store.
//
// Schedules go through ITickScheduler so tests can drive them with a virtual
// clock. Cancellation on unsubscribe is explicit: a forgotten schedule would
// keep ticking forever.
// -----------------------------------------------------------------------------

type SimulatedProvider struct {
	Logger *logger.Logger

	cfg     models.MSimulatorConfig
	clock   interfaces.IClock
	sched   interfaces.ITickScheduler
	store   interfaces.IQuoteStore  // optional; tick persistence hook
	markets *utils.MarketScheduler  // optional; off-hours pacing

	listeners *utils.Registry[models.MTick]

	mu   sync.Mutex
	rng  *rand.Rand
	runs map[string]*simRun
}

// -----------------------------------------------------------------------------

// simRun is one symbol's schedule plus the interest that keeps it alive.
type simRun struct {
	price      float64
	cancel     interfaces.CancelFunc
	trades     bool
	timeframes map[string]bool
}

func (r *simRun) hasInterest() bool {
	return r.trades || len(r.timeframes) > 0
}

// -----------------------------------------------------------------------------

func NewSimulatedProvider(
	cfg models.MSimulatorConfig,
	clock interfaces.IClock,
	sched interfaces.ITickScheduler,
	store interfaces.IQuoteStore,
	markets *utils.MarketScheduler,
	log *logger.Logger,
) *SimulatedProvider {
	return &SimulatedProvider{
		Logger:    log,
		cfg:       cfg,
		clock:     clock,
		sched:     sched,
		store:     store,
		markets:   markets,
		listeners: utils.NewRegistry[models.MTick](),
		rng:       rand.New(rand.NewSource(clock.Now().UnixNano())),
		runs:      make(map[string]*simRun),
	}
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) Name() string {
	return "simulated"
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) SubscribeTrades(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, symbol := range symbols {
		run := p.ensureRunLocked(symbol)
		run.trades = true
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) SubscribeAggregates(symbols []string, timeframe string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, symbol := range symbols {
		run := p.ensureRunLocked(symbol)
		run.timeframes[timeframe] = true
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) UnsubscribeTrades(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, symbol := range symbols {
		run, ok := p.runs[symbol]
		if !ok {
			continue
		}
		run.trades = false
		p.reapLocked(symbol, run)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) UnsubscribeAggregates(symbols []string, timeframe string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, symbol := range symbols {
		run, ok := p.runs[symbol]
		if !ok {
			continue
		}
		delete(run.timeframes, timeframe)
		p.reapLocked(symbol, run)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) OnPrice(listener interfaces.PriceListener) interfaces.DetachFunc {
	return interfaces.DetachFunc(p.listeners.Add(func(tick models.MTick) {
		listener(tick)
	}))
}

// -----------------------------------------------------------------------------

// ClearAll cancels every symbol schedule. Never fails.
func (p *SimulatedProvider) ClearAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for symbol, run := range p.runs {
		if run.cancel != nil {
			run.cancel()
		}
		delete(p.runs, symbol)
	}
	return nil
}

// -----------------------------------------------------------------------------

// SubscribedSymbols reports the symbols with a live schedule.
func (p *SimulatedProvider) SubscribedSymbols() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbols := make([]string, 0, len(p.runs))
	for symbol := range p.runs {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// ensureRunLocked starts the symbol's schedule if it is not ticking yet.
// Caller must hold p.mu.
func (p *SimulatedProvider) ensureRunLocked(symbol string) *simRun {
	if run, ok := p.runs[symbol]; ok {
		return run
	}

	run := &simRun{
		price:      p.startingPrice(symbol),
		timeframes: make(map[string]bool),
	}
	p.runs[symbol] = run
	p.scheduleLocked(symbol, run)
	return run
}

// -----------------------------------------------------------------------------

// startingPrice resumes from the last persisted quote when one exists.
func (p *SimulatedProvider) startingPrice(symbol string) float64 {
	if p.store != nil {
		if quote, err := p.store.GetQuote(symbol); err == nil && quote.Price > 0 {
			return quote.Price
		}
	}
	return p.cfg.StartPrice
}

// -----------------------------------------------------------------------------

// scheduleLocked arms the next jittered tick for a symbol. Caller must hold
// p.mu.
func (p *SimulatedProvider) scheduleLocked(symbol string, run *simRun) {
	spread := p.cfg.MaxIntervalMs - p.cfg.MinIntervalMs
	intervalMs := p.cfg.MinIntervalMs
	if spread > 0 {
		intervalMs += p.rng.Intn(spread + 1)
	}

	// Off hours the simulator keeps ticking, just much slower.
	if p.markets != nil && !p.markets.IsSymbolMarketOpen(symbol, p.clock.Now()) {
		intervalMs *= p.cfg.OffHoursStretch
	}

	run.cancel = p.sched.Schedule(time.Duration(intervalMs)*time.Millisecond, func() {
		p.emitTick(symbol)
	})
}

// -----------------------------------------------------------------------------

func (p *SimulatedProvider) emitTick(symbol string) {
	p.mu.Lock()
	run, ok := p.runs[symbol]
	if !ok {
		// Unsubscribed between firing and handling.
		p.mu.Unlock()
		return
	}

	// Bounded random walk: +/- volatility_pct percent per tick.
	pct := (p.rng.Float64()*2 - 1) * p.cfg.VolatilityPct / 100
	run.price *= 1 + pct
	if run.price < 0.01 {
		run.price = 0.01
	}

	tick := models.MTick{
		Symbol:    symbol,
		Price:     run.price,
		Volume:    float64(1 + p.rng.Intn(100)),
		Timestamp: p.clock.Now(),
	}

	p.scheduleLocked(symbol, run)
	p.mu.Unlock()

	p.listeners.Emit(tick)

	if p.store != nil {
		quote := models.MQuote{Symbol: symbol, Price: tick.Price, UpdatedAt: tick.Timestamp}
		if err := p.store.SaveQuote(quote); err != nil {
			p.Logger.Warning("Failed to persist quote for %s: %v", symbol, err)
		}
	}
}

// -----------------------------------------------------------------------------

// reapLocked cancels the schedule once nothing is interested in the symbol.
// Caller must hold p.mu.
func (p *SimulatedProvider) reapLocked(symbol string, run *simRun) {
	if run.hasInterest() {
		return
	}
	if run.cancel != nil {
		run.cancel()
	}
	delete(p.runs, symbol)
}
