package models

import "time"

// MTick represents a single raw price observation pushed by a stream provider.
// Ticks are ephemeral: they are fanned out to listeners and never stored.
type MTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MQuote is the latest persisted quote for a symbol (written by the simulated
// provider through the quote store on every emitted tick).
type MQuote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}
