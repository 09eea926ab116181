package models

import "time"

// -----------------------------------------------------------------------------
// Candle Event Kinds
// -----------------------------------------------------------------------------

const (
	// CandleEventUpdate marks an in-progress candle (latest tick folded in).
	CandleEventUpdate = "candle-update"
	// CandleEventComplete marks a finalized candle (its time bucket rolled over).
	CandleEventComplete = "candle-complete"
)

// -----------------------------------------------------------------------------

// MCandle represents one OHLCV bar for a (symbol, timeframe) time bucket.
type MCandle struct {
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"timeframe"` // e.g. "1m", "5m"
	BucketStart time.Time `json:"bucket_start"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
}

// -----------------------------------------------------------------------------

// MCandleEvent is what candle listeners receive: the bar plus whether it is
// still being built or has been finalized.
type MCandleEvent struct {
	Kind   string  `json:"kind"` // CandleEventUpdate or CandleEventComplete
	Candle MCandle `json:"candle"`
}
