package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"market-sync/src/engine"
	"market-sync/src/helpers"
	"market-sync/src/logger"
	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// MarketFeedSource fetches the snapshot's three record lists from the market
// data API. Every call goes through the request engine so concurrent
// consumers share one in-flight fetch per endpoint and results are cached
// between refresh cycles. No retries here: failure surfaces to the caller and
// the next attempt starts fresh.
// -----------------------------------------------------------------------------

type MarketFeedSource struct {
	Config     models.MSnapshotConfig
	Engine     *engine.RequestEngine
	Logger     *logger.Logger
	HttpClient *http.Client
}

// -----------------------------------------------------------------------------

func NewMarketFeedSource(cfg models.MSnapshotConfig, eng *engine.RequestEngine, log *logger.Logger) *MarketFeedSource {
	return &MarketFeedSource{
		Config: cfg,
		Engine: eng,
		Logger: log,
		HttpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// FetchNews returns up to limit headlines.
func (s *MarketFeedSource) FetchNews(ctx context.Context, limit int) ([]models.MNewsItem, error) {
	key := fmt.Sprintf("snapshot:news:%d", limit)
	return engine.Fetch(s.Engine, key, func() ([]models.MNewsItem, error) {
		var payload struct {
			News []models.MNewsItem `json:"news"`
		}
		params := map[string]string{"limit": strconv.Itoa(limit)}
		if err := s.getJSON(ctx, "/v1/news", params, &payload); err != nil {
			return nil, err
		}
		return payload.News, nil
	}, models.MRequestOptions{Priority: models.PriorityHigh, Cache: true, Dedupe: true})
}

// -----------------------------------------------------------------------------

// FetchTrending returns the trending-symbols list.
func (s *MarketFeedSource) FetchTrending(ctx context.Context) ([]models.MTrendingTicker, error) {
	return engine.Fetch(s.Engine, "snapshot:trending", func() ([]models.MTrendingTicker, error) {
		var payload struct {
			Trending []models.MTrendingTicker `json:"trending"`
		}
		if err := s.getJSON(ctx, "/v1/trending", nil, &payload); err != nil {
			return nil, err
		}
		return payload.Trending, nil
	}, models.MRequestOptions{Priority: models.PriorityNormal, Cache: true, Dedupe: true})
}

// -----------------------------------------------------------------------------

// FetchEvents returns upcoming calendar events.
func (s *MarketFeedSource) FetchEvents(ctx context.Context) ([]models.MCalendarEvent, error) {
	return engine.Fetch(s.Engine, "snapshot:events", func() ([]models.MCalendarEvent, error) {
		var payload struct {
			Events []models.MCalendarEvent `json:"events"`
		}
		if err := s.getJSON(ctx, "/v1/events", nil, &payload); err != nil {
			return nil, err
		}
		return payload.Events, nil
	}, models.MRequestOptions{Priority: models.PriorityLow, Cache: true, Dedupe: true, DeferToIdle: true})
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (s *MarketFeedSource) getJSON(ctx context.Context, path string, params map[string]string, out any) error {
	if s.Config.BaseURL == "" {
		return helpers.NewConfigurationError("snapshot.base_url")
	}

	reqUrl, err := url.Parse(s.Config.BaseURL + path)
	if err != nil {
		return err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl.String(), nil)
	if err != nil {
		return err
	}
	if s.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.Config.APIKey)
	}

	resp, err := s.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json unmarshal failed for %s: %w", path, err)
	}
	return nil
}
