package models

import "time"

// -----------------------------------------------------------------------------
// Snapshot payload records (news / trending / calendar events)
// -----------------------------------------------------------------------------

// MNewsItem is a single market-news headline.
type MNewsItem struct {
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Symbols     []string  `json:"symbols"`
	PublishedAt time.Time `json:"published_at"`
}

// MTrendingTicker is one entry of the trending-symbols list.
type MTrendingTicker struct {
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	PricePercentChange float64 `json:"price_percent_change"`
	Rank               int     `json:"rank"`
}

// MCalendarEvent is an upcoming market event (earnings, dividends, splits...).
type MCalendarEvent struct {
	Symbol    string    `json:"symbol"`
	EventType string    `json:"event_type"`
	Title     string    `json:"title"`
	At        time.Time `json:"at"`
}

// -----------------------------------------------------------------------------
// Composite snapshot
// -----------------------------------------------------------------------------

// MSnapshot is the single composite payload refreshed periodically. It is
// replaced wholesale on every successful fetch; a failed fetch leaves the
// previous data fields untouched.
type MSnapshot struct {
	News      []MNewsItem       `json:"news"`
	Trending  []MTrendingTicker `json:"trending"`
	Events    []MCalendarEvent  `json:"events"`
	FetchedAt time.Time         `json:"fetched_at"`
	IsLoading bool              `json:"is_loading"`
}

// -----------------------------------------------------------------------------

// MSnapshotParams selects what the snapshot fetch should include.
type MSnapshotParams struct {
	NewsCount       int  `json:"news_count"`
	IncludeTrending bool `json:"include_trending"`
	IncludeEvents   bool `json:"include_events"`
}

// -----------------------------------------------------------------------------

// MSnapshotFields is the read-only view handed to consumers; it never triggers
// a fetch.
type MSnapshotFields struct {
	News       []MNewsItem       `json:"news"`
	Trending   []MTrendingTicker `json:"trending"`
	Events     []MCalendarEvent  `json:"events"`
	IsValid    bool              `json:"is_valid"`
	IsLoading  bool              `json:"is_loading"`
	LastUpdate time.Time         `json:"last_update"`
}
