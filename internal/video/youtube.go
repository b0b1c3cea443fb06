// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package video fetches video statistics from the YouTube Data API. The
// catalog knows which video belongs to a track; this client fills in the
// engagement numbers (views, likes, comments) for it.
package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ovasilev/powerchart/internal/httputil"
	"github.com/ovasilev/powerchart/pkg/types"
)

// DefaultBaseURL is the YouTube Data API v3 root.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

const (
	defaultRateLimit = 1.0 // requests per second
	defaultTimeout   = 30 * time.Second
)

// Client queries video statistics. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        types.VideoConfig
	logger     *zap.Logger
}

// NewClient builds a client from cfg.
func NewClient(cfg types.VideoConfig, logger *zap.Logger) *Client {
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
		logger:     logger.Named("video"),
	}
}

// GetVideo fetches title, channel and statistics for the video with the
// given ID. Returns an error when the video does not exist.
func (c *Client) GetVideo(ctx context.Context, id string) (*types.VideoMetadata, error) {
	if id == "" {
		return nil, fmt.Errorf("video id is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("part", "statistics,snippet")
	params.Set("id", id)
	params.Set("key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/videos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building video request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching video %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("video API returned HTTP %d for %s", resp.StatusCode, id)
	}

	var parsed struct {
		Items []struct {
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing video response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", id)
	}

	item := parsed.Items[0]
	return &types.VideoMetadata{
		ID:          id,
		Title:       item.Snippet.Title,
		ChannelName: item.Snippet.ChannelTitle,
		Views:       parseCount(item.Statistics.ViewCount),
		Likes:       parseCount(item.Statistics.LikeCount),
		Comments:    parseCount(item.Statistics.CommentCount),
	}, nil
}

// parseCount converts the API's string-encoded counters; missing or
// malformed counters read as 0.
func parseCount(s string) float64 {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}
