package stream

import (
	"sync"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/utils"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	feedWriteWait   = 2 * time.Second
	feedDialTimeout = 10 * time.Second
)

// -----------------------------------------------------------------------------
// Feed wire format
// -----------------------------------------------------------------------------

type feedCommand struct {
	Action     string   `json:"action"` // "auth", "subscribe", "unsubscribe"
	Key        string   `json:"key,omitempty"`
	Trades     []string `json:"trades,omitempty"`
	Aggregates []string `json:"aggregates,omitempty"`
	Timeframe  string   `json:"timeframe,omitempty"`
}

type feedFrame struct {
	EventType string  `json:"ev"` // "T" for trade ticks
	Symbol    string  `json:"sym"`
	Price     float64 `json:"p"`
	Size      float64 `json:"s"`
	Timestamp int64   `json:"t"` // unix millis
}

// -----------------------------------------------------------------------------
// LiveProvider wraps the external push-based trade feed behind the provider
// contract. Connection is lazy: the first subscribe dials and authenticates.
// -----------------------------------------------------------------------------

type LiveProvider struct {
	Logger *logger.Logger

	cfg       models.MStreamConfig
	listeners *utils.Registry[models.MTick]

	mu     sync.Mutex
	conn   *websocket.Conn
	trades map[string]bool
	aggs   map[string]map[string]bool // symbol -> timeframes
}

// -----------------------------------------------------------------------------

func NewLiveProvider(cfg models.MStreamConfig, log *logger.Logger) *LiveProvider {
	return &LiveProvider{
		Logger:    log,
		cfg:       cfg,
		listeners: utils.NewRegistry[models.MTick](),
		trades:    make(map[string]bool),
		aggs:      make(map[string]map[string]bool),
	}
}

// -----------------------------------------------------------------------------

func (p *LiveProvider) Name() string {
	return "live"
}

// -----------------------------------------------------------------------------

func (p *LiveProvider) SubscribeTrades(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnectedLocked(); err != nil {
		return err
	}

	cmd := feedCommand{Action: "subscribe", Trades: symbols}
	if err := p.writeLocked(cmd); err != nil {
		return helpers.NewProviderUnavailableError(p.Name(), err)
	}

	for _, symbol := range symbols {
		p.trades[symbol] = true
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *LiveProvider) SubscribeAggregates(symbols []string, timeframe string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnectedLocked(); err != nil {
		return err
	}

	cmd := feedCommand{Action: "subscribe", Aggregates: symbols, Timeframe: timeframe}
	if err := p.writeLocked(cmd); err != nil {
		return helpers.NewProviderUnavailableError(p.Name(), err)
	}

	for _, symbol := range symbols {
		if p.aggs[symbol] == nil {
			p.aggs[symbol] = make(map[string]bool)
		}
		p.aggs[symbol][timeframe] = true
	}
	return nil
}

// -----------------------------------------------------------------------------

func (p *LiveProvider) UnsubscribeTrades(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, symbol := range symbols {
		delete(p.trades, symbol)
	}

	if p.conn == nil {
		return nil
	}
	return p.writeLocked(feedCommand{Action: "unsubscribe", Trades: symbols})
}

// -----------------------------------------------------------------------------

func (p *LiveProvider) UnsubscribeAggregates(symbols []string, timeframe string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, symbol := range symbols {
		if p.aggs[symbol] != nil {
			delete(p.aggs[symbol], timeframe)
			if len(p.aggs[symbol]) == 0 {
				delete(p.aggs, symbol)
			}
		}
	}

	if p.conn == nil {
		return nil
	}
	return p.writeLocked(feedCommand{Action: "unsubscribe", Aggregates: symbols, Timeframe: timeframe})
}

// -----------------------------------------------------------------------------

func (p *LiveProvider) OnPrice(listener interfaces.PriceListener) interfaces.DetachFunc {
	return interfaces.DetachFunc(p.listeners.Add(func(tick models.MTick) {
		listener(tick)
	}))
}

// -----------------------------------------------------------------------------

// ClearAll drops every subscription and closes the feed. Never fails; errors
// during teardown are logged and discarded.
func (p *LiveProvider) ClearAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = make(map[string]bool)
	p.aggs = make(map[string]map[string]bool)

	if p.conn == nil {
		return nil
	}
	if err := p.conn.Close(); err != nil {
		p.Logger.Warning("Error closing feed connection: %v", err)
	}
	p.conn = nil
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// ensureConnectedLocked dials and authenticates the feed on first use.
// Caller must hold p.mu.
func (p *LiveProvider) ensureConnectedLocked() error {
	if p.conn != nil {
		return nil
	}

	if p.cfg.FeedURL == "" {
		return helpers.NewConfigurationError("stream.feed_url")
	}
	if p.cfg.APIKey == "" {
		return helpers.NewConfigurationError("stream.api_key")
	}

	dialer := websocket.Dialer{HandshakeTimeout: feedDialTimeout}
	conn, _, err := dialer.Dial(p.cfg.FeedURL, nil)
	if err != nil {
		return helpers.NewProviderUnavailableError(p.Name(), err)
	}
	p.conn = conn

	if err := p.writeLocked(feedCommand{Action: "auth", Key: p.cfg.APIKey}); err != nil {
		p.conn.Close()
		p.conn = nil
		return helpers.NewProviderUnavailableError(p.Name(), err)
	}

	go p.readPump(conn)
	return nil
}

// -----------------------------------------------------------------------------

// writeLocked sends one command frame. Caller must hold p.mu; gorilla
// connections allow a single concurrent writer.
func (p *LiveProvider) writeLocked(cmd feedCommand) error {
	p.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return p.conn.WriteJSON(cmd)
}

// -----------------------------------------------------------------------------

// readPump parses feed frames into ticks until the connection dies.
func (p *LiveProvider) readPump(conn *websocket.Conn) {
	defer func() {
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
		}
		p.mu.Unlock()
		conn.Close()
	}()

	for {
		var frames []feedFrame
		if err := conn.ReadJSON(&frames); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.Logger.Warning("Feed read error: %v", err)
			}
			return
		}

		for _, frame := range frames {
			if frame.EventType != "T" {
				continue
			}
			p.listeners.Emit(models.MTick{
				Symbol:    frame.Symbol,
				Price:     frame.Price,
				Volume:    frame.Size,
				Timestamp: time.UnixMilli(frame.Timestamp).UTC(),
			})
		}
	}
}
