package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketSyncError struct {
	Message string
	Cause   error
}

func (e *MarketSyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketSyncError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

// FetchError: a single data-source call failed. Surfaced to the awaiting
// caller(s); cache/snapshot stay at last-known-good state.
type FetchError struct{ MarketSyncError }

// ConfigurationError: a required credential or provider setting is missing.
type ConfigurationError struct{ MarketSyncError }

// ProviderUnavailableError: the live stream subscribe failed. Triggers the
// simulated fallback in developer mode, otherwise propagated as-is.
type ProviderUnavailableError struct{ MarketSyncError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewFetchError(operation string, cause error) error {
	return &FetchError{MarketSyncError{Message: fmt.Sprintf("%s failed", operation), Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewConfigurationError(setting string) error {
	return &ConfigurationError{MarketSyncError{Message: fmt.Sprintf("missing required setting: %s", setting)}}
}

// -----------------------------------------------------------------------------

func NewProviderUnavailableError(provider string, cause error) error {
	return &ProviderUnavailableError{MarketSyncError{Message: fmt.Sprintf("provider %s unavailable", provider), Cause: cause}}
}

// -----------------------------------------------------------------------------
// Type Checks
// -----------------------------------------------------------------------------

func IsProviderUnavailable(err error) bool {
	var target *ProviderUnavailableError
	return errors.As(err, &target)
}

// -----------------------------------------------------------------------------

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
