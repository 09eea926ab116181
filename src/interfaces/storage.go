package interfaces

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// IQuoteStore defines the contract for latest-quote persistence.
// The simulated provider writes through it on every emitted tick.
// -----------------------------------------------------------------------------

type IQuoteStore interface {

	// Initialize sets up the backing schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveQuote upserts the latest quote for a symbol.
	SaveQuote(quote models.MQuote) error

	// -----------------------------------------------------------------------------

	// GetQuote returns the latest persisted quote for a symbol.
	GetQuote(symbol string) (models.MQuote, error)

	// -----------------------------------------------------------------------------

	// Close the underlying connection
	Close() error
}
