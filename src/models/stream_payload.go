package models

// -----------------------------------------------------------------------------
// WebSocket bridge payloads
// -----------------------------------------------------------------------------

type MStreamPayload struct {
	Type      string        `json:"type"` // "price" or "candle"
	Tick      *MTick        `json:"tick,omitempty"`
	Candle    *MCandleEvent `json:"candle,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command   string   `json:"command"` // "subscribe" or "unsubscribe"
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
}
