// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog wraps the Songstats Enterprise API: track search, current
// platform statistics, historical peaks, availability, and video lookups.
// All calls go through a shared token-bucket rate limiter and the retry
// helper, and read-mostly endpoints are backed by the SQLite response cache.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ovasilev/powerchart/internal/cache"
	"github.com/ovasilev/powerchart/internal/httputil"
	"github.com/ovasilev/powerchart/pkg/types"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.songstats.com/enterprise/v1"

const (
	defaultRateLimit = 2.0 // requests per second
	defaultTimeout   = 30 * time.Second

	// cacheMaxAge bounds how stale a cached response may be before the
	// client refetches. Stats move slowly; a day is fine within one run
	// season.
	cacheMaxAge = 24 * time.Hour
)

// sourceAliases maps API source names to the platform names used in metric
// keys.
var sourceAliases = map[string]string{
	"tracklist": "tracklists",
	"amazon":    "amazon_music",
}

// defaultSources lists the platforms queried for current stats.
var defaultSources = []string{
	"spotify", "apple_music", "amazon", "deezer", "tidal",
	"beatport", "soundcloud", "tiktok", "youtube", "tracklist",
}

// peakSources lists the platforms that report a popularity history.
var peakSources = []string{"spotify", "deezer", "tidal"}

// APIError is a non-success response from the catalog API.
type APIError struct {
	StatusCode int
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API %s returned HTTP %d", e.Endpoint, e.StatusCode)
}

// Quota reports request usage for the current billing period.
type Quota struct {
	RequestsUsed  int    `json:"requests_used"`
	RequestsLimit int    `json:"requests_limit"`
	ResetDate     string `json:"reset_date"`
}

// Client is the catalog API client. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        types.CatalogConfig
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewClient builds a client from cfg. The cache may be nil, which disables
// response caching.
func NewClient(cfg types.CatalogConfig, respCache *cache.Cache, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cfg:        cfg,
		cache:      respCache,
		logger:     logger.Named("catalog"),
	}
}

// get performs a rate-limited, retried GET against path with params and
// returns the response body. Non-2xx responses become *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return body, nil
}

// getCached wraps get with the response cache, keyed by (cacheKey, id).
func (c *Client) getCached(ctx context.Context, path string, params url.Values, cacheKey, id string) ([]byte, error) {
	if c.cache != nil {
		body, hit, err := c.cache.Get(ctx, cacheKey, id, cacheMaxAge)
		if err != nil {
			c.logger.Warn("Cache read failed", zap.String("endpoint", cacheKey), zap.Error(err))
		} else if hit {
			c.logger.Debug("Cache hit", zap.String("endpoint", cacheKey), zap.String("id", id))
			return body, nil
		}
	}

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, cacheKey, id, body); err != nil {
			c.logger.Warn("Cache write failed", zap.String("endpoint", cacheKey), zap.Error(err))
		}
	}
	return body, nil
}

// Status returns the current request quota.
func (c *Client) Status(ctx context.Context) (Quota, error) {
	body, err := c.get(ctx, "/status", nil)
	if err != nil {
		return Quota{}, err
	}
	var q Quota
	if err := json.Unmarshal(body, &q); err != nil {
		return Quota{}, fmt.Errorf("parsing status response: %w", err)
	}
	return q, nil
}

// Search queries the catalog for tracks matching query and returns up to
// limit candidates.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.CandidateMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprint(limit))

	body, err := c.get(ctx, "/tracks/search", params)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []struct {
			SongstatsTrackID string `json:"songstats_track_id"`
			Title            string `json:"title"`
			ISRC             string `json:"isrc"`
			Artists          []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	matches := make([]types.CandidateMatch, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		m := types.CandidateMatch{
			CatalogTrackID: r.SongstatsTrackID,
			Title:          r.Title,
			ISRC:           r.ISRC,
		}
		for _, a := range r.Artists {
			m.Artists = append(m.Artists, a.Name)
		}
		for _, l := range r.Labels {
			m.Labels = append(m.Labels, l.Name)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// statsEnvelope is the shared {"stats": [{"source": ..., "data": ...}]}
// response shape.
type statsEnvelope struct {
	Stats []struct {
		Source string          `json:"source"`
		Data   json.RawMessage `json:"data"`
	} `json:"stats"`
}

// PlatformStats fetches current statistics for the track across all tracked
// platforms and flattens them to "<platform>_<metric>" keys. Only numeric
// metrics are kept.
func (c *Client) PlatformStats(ctx context.Context, trackID string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("songstats_track_id", trackID)
	params.Set("source", strings.Join(defaultSources, ","))

	body, err := c.getCached(ctx, "/tracks/stats", params, "stats", trackID)
	if err != nil {
		return nil, err
	}

	var env statsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing stats response: %w", err)
	}

	flat := make(map[string]float64)
	for _, entry := range env.Stats {
		platform := platformName(entry.Source)
		var data map[string]any
		if err := json.Unmarshal(entry.Data, &data); err != nil {
			continue
		}
		for key, value := range data {
			if n, ok := value.(float64); ok {
				flat[platform+"_"+key] = n
			}
		}
	}
	return flat, nil
}

// HistoricalPeaks fetches popularity history since startDate and reduces
// each platform's series to its maximum, keyed "<platform>_popularity_peak".
// Platforms with an empty history report a 0 peak.
func (c *Client) HistoricalPeaks(ctx context.Context, trackID, startDate string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("songstats_track_id", trackID)
	params.Set("start_date", startDate)
	params.Set("source", strings.Join(peakSources, ","))

	body, err := c.getCached(ctx, "/tracks/historic_stats", params, "historic", trackID)
	if err != nil {
		return nil, err
	}

	var env statsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing historic stats response: %w", err)
	}

	peaks := make(map[string]float64)
	for _, entry := range env.Stats {
		var data struct {
			History []struct {
				PopularityCurrent float64 `json:"popularity_current"`
			} `json:"history"`
		}
		if err := json.Unmarshal(entry.Data, &data); err != nil {
			continue
		}
		peak := 0.0
		for _, point := range data.History {
			if point.PopularityCurrent > peak {
				peak = point.PopularityCurrent
			}
		}
		peaks[platformName(entry.Source)+"_popularity_peak"] = peak
	}
	return peaks, nil
}

// AvailablePlatforms returns the set of platforms the track has links on.
// The enrichment stage uses this to distinguish "no data" from "not on this
// platform".
func (c *Client) AvailablePlatforms(ctx context.Context, trackID string) (map[string]bool, error) {
	params := url.Values{}
	params.Set("songstats_track_id", trackID)

	body, err := c.getCached(ctx, "/tracks/info", params, "info", trackID)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TrackInfo struct {
			Links []struct {
				Source string `json:"source"`
			} `json:"links"`
		} `json:"track_info"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing track info response: %w", err)
	}

	platforms := make(map[string]bool)
	for _, link := range parsed.TrackInfo.Links {
		if link.Source != "" {
			platforms[platformName(link.Source)] = true
		}
	}
	return platforms, nil
}

// TrackVideos returns the track's most viewed video on the video platform,
// preferring uploads from real channels over auto-generated "- Topic"
// channels. Returns nil when the track has no videos.
func (c *Client) TrackVideos(ctx context.Context, trackID string) (*types.VideoMetadata, error) {
	params := url.Values{}
	params.Set("songstats_track_id", trackID)
	params.Set("with_videos", "true")
	params.Set("source", "youtube")

	body, err := c.getCached(ctx, "/tracks/stats", params, "videos", trackID)
	if err != nil {
		return nil, err
	}

	var env struct {
		Stats []struct {
			Data struct {
				Videos []struct {
					ExternalID         string  `json:"external_id"`
					ViewCount          float64 `json:"view_count"`
					YoutubeChannelName string  `json:"youtube_channel_name"`
				} `json:"videos"`
			} `json:"data"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing video response: %w", err)
	}
	if len(env.Stats) == 0 || len(env.Stats[0].Data.Videos) == 0 {
		return nil, nil
	}

	videos := env.Stats[0].Data.Videos
	// The API returns videos ordered by view count; take the first
	// non-Topic upload, falling back to the first video.
	best := videos[0]
	for _, v := range videos {
		if !strings.Contains(v.YoutubeChannelName, " - Topic") {
			best = v
			break
		}
	}
	return &types.VideoMetadata{
		ID:          best.ExternalID,
		ChannelName: best.YoutubeChannelName,
		Views:       best.ViewCount,
	}, nil
}

func platformName(source string) string {
	if alias, ok := sourceAliases[source]; ok {
		return alias
	}
	return source
}
