package interfaces

import (
	"context"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// Snapshot data-source functions. The snapshot cache treats the concrete
// network calls as injected collaborators returning typed record lists.
// -----------------------------------------------------------------------------

// NewsFetchFunc returns up to limit news headlines.
type NewsFetchFunc func(ctx context.Context, limit int) ([]models.MNewsItem, error)

// TrendingFetchFunc returns the current trending-symbols list.
type TrendingFetchFunc func(ctx context.Context) ([]models.MTrendingTicker, error)

// EventsFetchFunc returns upcoming calendar events.
type EventsFetchFunc func(ctx context.Context) ([]models.MCalendarEvent, error)
