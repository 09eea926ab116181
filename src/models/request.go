package models

import "time"

// -----------------------------------------------------------------------------
// Request priority
// -----------------------------------------------------------------------------

// MPriority orders queued engine tasks. Higher weight runs first.
type MPriority int

const (
	PriorityLow MPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Weight returns the integer scheduling weight for the priority.
func (p MPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 40
	case PriorityHigh:
		return 30
	case PriorityNormal:
		return 20
	default:
		return 10
	}
}

func (p MPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// -----------------------------------------------------------------------------
// Request options
// -----------------------------------------------------------------------------

// MRequestOptions controls caching, dedup and scheduling for one engine call.
type MRequestOptions struct {
	TTL         time.Duration
	Priority    MPriority
	Cache       bool
	Dedupe      bool
	DeferToIdle bool
}

// DefaultRequestOptions matches the common UI fetch: cached, deduped, normal
// priority, no TTL override.
func DefaultRequestOptions() MRequestOptions {
	return MRequestOptions{
		Priority: PriorityNormal,
		Cache:    true,
		Dedupe:   true,
	}
}

// -----------------------------------------------------------------------------
// Cache entry
// -----------------------------------------------------------------------------

// MCacheEntry is one cached task result. Honored only while now < ExpiresAt.
type MCacheEntry struct {
	Value     any
	ExpiresAt time.Time
}
